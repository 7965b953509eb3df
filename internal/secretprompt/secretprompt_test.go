package secretprompt

import (
	"bytes"
	"os"
	"testing"
)

func TestReadFromPipe(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	go func() {
		w.WriteString("s3cret\n")
		w.Close()
	}()

	var out bytes.Buffer
	got, err := Read(r, &out)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got != "s3cret" {
		t.Errorf("got %q want %q", got, "s3cret")
	}
}
