package transcribe

import "testing"

func TestContentType(t *testing.T) {
	cases := []struct {
		name  string
		want  string
		known bool
	}{
		{"a.MP3", ContentTypeMP3, true},
		{"a.mp3", ContentTypeMP3, true},
		{"a.wav", ContentTypeWAV, true},
		{"a.WAV", ContentTypeWAV, true},
		{"a.ogg", ContentTypeMP3, false},
		{"a", ContentTypeMP3, false},
		{".mp3", ContentTypeMP3, false},
	}
	for _, c := range cases {
		got, known := ContentType(c.name)
		if got != c.want || known != c.known {
			t.Errorf("ContentType(%q) = %q, %v; want %q, %v", c.name, got, known, c.want, c.known)
		}
	}
}

func TestSplitExt(t *testing.T) {
	cases := []struct{ name, root, ext string }{
		{"meeting.mp3", "meeting", ".mp3"},
		{"a.b.wav", "a.b", ".wav"},
		{"noext", "noext", ""},
		{".mp3", ".mp3", ""},
		{"..x.mp3", "..x", ".mp3"},
	}
	for _, c := range cases {
		root, ext := SplitExt(c.name)
		if root != c.root || ext != c.ext {
			t.Errorf("SplitExt(%q) = %q, %q; want %q, %q", c.name, root, ext, c.root, c.ext)
		}
	}
}

func TestExtract(t *testing.T) {
	groups := []ResultGroup{{Results: []Result{
		{Alternatives: []Alternative{{Transcript: "foo"}, {Transcript: "ignored"}}},
		{Alternatives: []Alternative{{Transcript: "bar"}}},
	}}}
	if got := Extract(groups); got != "foobar" {
		t.Fatalf("Extract = %q, want foobar", got)
	}
	if got := Extract(nil); got != "" {
		t.Fatalf("Extract(nil) = %q, want empty", got)
	}
}

func TestExtractAcrossGroups(t *testing.T) {
	job := &Job{Status: StatusCompleted, Results: []ResultGroup{
		{Results: []Result{{Alternatives: []Alternative{{Transcript: "a"}}}}},
		{Results: []Result{{}, {Alternatives: []Alternative{{Transcript: "b"}}}}},
	}}
	if got := job.Transcript(); got != "ab" {
		t.Fatalf("Transcript = %q, want ab", got)
	}
}

func TestStatusEnded(t *testing.T) {
	for s, want := range map[Status]bool{
		StatusRunning:   false,
		StatusCompleted: false,
		StatusFailed:    true,
		StatusCancelled: true,
	} {
		if s.Ended() != want {
			t.Errorf("%s.Ended() = %v", s, !want)
		}
	}
}
