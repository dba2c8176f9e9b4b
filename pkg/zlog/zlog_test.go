package zlog

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/go-kratos/kratos/v2/log"
)

func TestLogger_Log(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(WithOutput(&buf), WithLevel("debug"))
	h := log.NewHelper(l)
	h.Infow("msg", "cycle published", "places", 3)
	h.Errorw("msg", "geocoder failed", "err", errors.New("boom"))

	out := buf.String()
	for _, want := range []string{`"level":"info"`, `"msg":"cycle published"`, `"places":3`, `"level":"error"`, `"err":"boom"`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s:\n%s", want, out)
		}
	}
}

func TestLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(WithOutput(&buf), WithLevel("warn"))
	_ = l.Log(log.LevelInfo, "msg", "hidden")
	_ = l.Log(log.LevelWarn, "msg", "shown", "dangling")
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info leaked through warn filter: %s", out)
	}
	if !strings.Contains(out, "KEYVALS UNPAIRED") {
		t.Errorf("unpaired keyvals not padded: %s", out)
	}
}
