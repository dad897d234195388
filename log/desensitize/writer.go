package desensitize

import "io"

// Writer masks log output before it reaches w.
type Writer struct {
	w    io.Writer
	hook *Hook
}

func NewWriter(w io.Writer, hook *Hook) *Writer {
	if w == nil || hook == nil {
		panic("desensitize: writer and hook are required")
	}
	return &Writer{w: w, hook: hook}
}

// Write reports len(p) even when the masked line is shorter; zerolog
// treats a short count as an error.
func (w *Writer) Write(p []byte) (int, error) {
	if len(p) == 0 || w.hook.Len() == 0 {
		return w.w.Write(p)
	}
	text := string(p)
	masked := w.hook.Desensitize(text)
	if masked == text {
		return w.w.Write(p)
	}
	if _, err := w.w.Write([]byte(masked)); err != nil {
		return 0, err
	}
	return len(p), nil
}
