package failure

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindUnknown},
		{"load", &ImageLoadError{Ref: "https://x/y.png", Err: errors.New("404")}, KindImageLoad},
		{"wrapped load", fmt.Errorf("外层: %w", &ImageLoadError{Err: ErrCrossOriginBlocked}), KindImageLoad},
		{"timeout", &TimeoutError{Stage: "loading", After: time.Second}, KindTimeout},
		{"encode", &EncodeError{Format: "png", Err: ErrEmptyEncoding}, KindEncode},
		{"other", errors.New("boom"), KindUnknown},
	}
	for _, tc := range cases {
		if got := Classify(tc.err); got != tc.want {
			t.Fatalf("%s: got %v want %v", tc.name, got, tc.want)
		}
	}
}

func TestUnwrapKeepsCause(t *testing.T) {
	err := fmt.Errorf("x: %w", &ImageLoadError{Ref: "r", Err: ErrCrossOriginBlocked})
	if !errors.Is(err, ErrCrossOriginBlocked) {
		t.Fatalf("expected cross-origin cause to be reachable: %v", err)
	}
	if !errors.Is(&EncodeError{Err: ErrFormatMismatch}, ErrFormatMismatch) {
		t.Fatalf("expected format mismatch cause")
	}
	if !errors.Is(&TimeoutError{}, context.DeadlineExceeded) {
		t.Fatalf("timeout should match context.DeadlineExceeded")
	}
}

func TestLongReferenceIsShortened(t *testing.T) {
	ref := "data:image/png;base64," + strings.Repeat("A", 4096)
	msg := (&ImageLoadError{Ref: ref, Err: ErrEmptyImage}).Error()
	if len(msg) > 300 {
		t.Fatalf("error message too long: %d", len(msg))
	}
}

func TestShortenKeepsRunesWhole(t *testing.T) {
	ref := strings.Repeat("x", 95) + strings.Repeat("图", 10)
	got := shorten(ref)
	if !utf8.ValidString(got) {
		t.Fatalf("shortened reference is not valid UTF-8: %q", got)
	}
	if want := strings.Repeat("x", 95) + "…"; got != want {
		t.Fatalf("got %q want %q", got, want)
	}
	msg := (&ImageLoadError{Ref: strings.Repeat("表情包", 60), Err: ErrEmptyImage}).Error()
	if !utf8.ValidString(msg) {
		t.Fatalf("error message is not valid UTF-8: %q", msg)
	}
}
