package captionio_test

import (
	"bytes"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/MrWong99/versecap/internal/caption"
	"github.com/MrWong99/versecap/internal/captionio"
)

func TestReadJSONL(t *testing.T) {
	t.Parallel()

	in := `{"id":"1","text":"Turn to Matthew chapter.","is_final":true}

{"id":"2","text":"twel","is_final":false}
{"id":"3","text":"Twelve.","is_final":true}
`
	got, err := captionio.ReadJSONL(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadJSONL: %v", err)
	}
	want := []caption.Segment{
		{ID: "1", Text: "Turn to Matthew chapter.", IsFinal: true},
		{ID: "2", Text: "twel", IsFinal: false},
		{ID: "3", Text: "Twelve.", IsFinal: true},
	}
	if !slices.Equal(got, want) {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestReadJSONL_NormalizesNFC(t *testing.T) {
	t.Parallel()

	// The JSON escape spells "e" followed by a combining acute accent.
	got, err := captionio.ReadJSONL(strings.NewReader(`{"id":"1","text":"Ne\u0301hemie","is_final":true}`))
	if err != nil {
		t.Fatalf("ReadJSONL: %v", err)
	}
	if want := "N\u00e9hemie"; got[0].Text != want {
		t.Errorf("text = %q, want composed %q", got[0].Text, want)
	}
}

func TestReadJSONL_BadLine(t *testing.T) {
	t.Parallel()

	_, err := captionio.ReadJSONL(strings.NewReader("{\"id\":\"1\",\"text\":\"a\"}\nnot json\n"))
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "line 2") {
		t.Errorf("err = %v, want it to name line 2", err)
	}
}

func TestReadWebVTT(t *testing.T) {
	t.Parallel()

	in := "WEBVTT - sunday service\r\n" +
		"\r\n" +
		"NOTE recorded live\r\n" +
		"\r\n" +
		"intro\r\n" +
		"00:00:01.000 --> 00:00:03.000\r\n" +
		"Turn with me to\r\n" +
		"Matthew chapter.\r\n" +
		"\r\n" +
		"00:00:03.000 --> 00:00:04.000 align:start\r\n" +
		"Twelve.\r\n" +
		"\r\n" +
		"00:00:04.000 --> 00:00:05.000\r\n" +
		"Verse one.\r\n"

	got, err := captionio.ReadWebVTT(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadWebVTT: %v", err)
	}
	want := []caption.Segment{
		{ID: "intro", Text: "Turn with me to Matthew chapter.", IsFinal: true},
		{ID: "2", Text: "Twelve.", IsFinal: true},
		{ID: "3", Text: "Verse one.", IsFinal: true},
	}
	if !slices.Equal(got, want) {
		t.Errorf("got %+v, want %+v", got, want)
	}

	rendered := caption.RenderSegments(caption.New(), got)
	if rendered[2].Text != "Matthew 12:1." {
		t.Errorf("rendered[2] = %q, want Matthew 12:1.", rendered[2].Text)
	}
}

func TestReadWebVTT_MissingHeader(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"", "00:00:01.000 --> 00:00:02.000\nhello\n", "WEBVTTX\n"} {
		if _, err := captionio.ReadWebVTT(strings.NewReader(in)); !errors.Is(err, captionio.ErrNotWebVTT) {
			t.Errorf("ReadWebVTT(%q) err = %v, want ErrNotWebVTT", in, err)
		}
	}
}

func TestWriteJSONL(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	err := captionio.WriteJSONL(&buf, []caption.Rendered{
		{ID: "1", Text: "Romans 5:8 <3"},
		{ID: "2", Text: "Amen."},
	})
	if err != nil {
		t.Fatalf("WriteJSONL: %v", err)
	}
	want := `{"id":"1","text":"Romans 5:8 <3"}` + "\n" + `{"id":"2","text":"Amen."}` + "\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestWriteText(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := captionio.WriteText(&buf, []caption.Rendered{{ID: "1", Text: "Matthew 12:1."}, {ID: "2", Text: "Amen."}}); err != nil {
		t.Fatalf("WriteText: %v", err)
	}
	if got, want := buf.String(), "Matthew 12:1.\nAmen.\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
