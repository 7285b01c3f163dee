package debug

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"
)

// capture routes debug output to a buffer at the given level for one test.
func capture(t *testing.T, level int) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	Init(level)
	t.Cleanup(func() {
		SetOutput(os.Stdout)
		Init(LevelOff)
	})
	return &buf
}

func TestInit_OffKeepsWarnings(t *testing.T) {
	buf := capture(t, LevelOff)
	Info("hidden")
	Counts(1, 2, 3)
	Warn("delivery failed")
	Error(errors.New("drive unreachable"))
	out := buf.String()
	if strings.Contains(out, "hidden") || strings.Contains(out, "[LIVE]") {
		t.Errorf("info output leaked at level 0: %q", out)
	}
	for _, want := range []string{"[WARN] delivery failed", "[ERROR] drive unreachable"} {
		if !strings.Contains(out, want) {
			t.Errorf("level 0 output missing %q: %q", want, out)
		}
	}
	if IsEnabled(LevelInfo) {
		t.Error("IsEnabled(LevelInfo) should be false at level 0")
	}
}

func TestLevels_Filter(t *testing.T) {
	cases := []struct {
		level int
		want  []string
		skip  []string
	}{
		{LevelInfo, []string{"[INFO] info", "[WARN] warn"}, []string{"[LIVE]", "[VERBOSE]", "[TRACE]"}},
		{LevelLive, []string{"[LIVE] left: 1 forward: 2 right: 3"}, []string{"[VERBOSE]", "[TRACE]"}},
		{LevelVerbose, []string{"[VERBOSE] verbose", "Step 1: step"}, []string{"[TRACE]", "[GPIO]"}},
		{LevelTrace, []string{"[TRACE] trace", "[GPIO] WritePin pin=17 value=true"}, nil},
	}
	for _, tc := range cases {
		buf := capture(t, tc.level)
		Info("info")
		Warn("warn")
		Counts(1, 2, 3)
		Verbose("verbose")
		Step(1, "step")
		Trace("trace")
		GPIO("WritePin", 17, true)

		out := buf.String()
		for _, w := range tc.want {
			if !strings.Contains(out, w) {
				t.Errorf("level %d: output missing %q:\n%s", tc.level, w, out)
			}
		}
		for _, s := range tc.skip {
			if strings.Contains(out, s) {
				t.Errorf("level %d: output should not contain %q:\n%s", tc.level, s, out)
			}
		}
	}
}

func TestCommand_Format(t *testing.T) {
	buf := capture(t, LevelLive)
	Command(0.25, -0.1)
	if want := "drive linear_x=0.2500 angular_z=-0.10"; !strings.Contains(buf.String(), want) {
		t.Errorf("output %q does not contain %q", buf.String(), want)
	}
}

func TestSetOutput_AfterInit(t *testing.T) {
	capture(t, LevelInfo)
	var second bytes.Buffer
	SetOutput(&second)
	Info("moved")
	if !strings.Contains(second.String(), "moved") {
		t.Errorf("output after SetOutput went elsewhere: %q", second.String())
	}
	if Level() != LevelInfo {
		t.Errorf("Level() = %d, want %d", Level(), LevelInfo)
	}
}
