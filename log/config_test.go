package log

import (
	"log/slog"
	"slices"
	"testing"
	"time"
)

func TestOptions_SetFields(t *testing.T) {
	c := apply(defaults(nil),
		WithLevel(LevelTrace),
		WithFormat(FormatJSON),
		WithTimeLayout("kitchen"),
		WithCaller(true),
		WithPretty(false),
		nil,
	)

	if c.level != LevelTrace {
		t.Errorf("level = %v, want trace", c.level)
	}

	if c.format != FormatJSON {
		t.Errorf("format = %v, want json", c.format)
	}

	if c.timeLayout != "kitchen" {
		t.Errorf("timeLayout = %q, want kitchen", c.timeLayout)
	}

	if !c.caller || c.pretty {
		t.Errorf("caller, pretty = %v, %v; want true, false", c.caller, c.pretty)
	}
}

func TestOptions_DoNotMutateBase(t *testing.T) {
	base := defaults(nil)
	_ = apply(base, WithLevel(LevelError))

	if base.level != DefaultLevel {
		t.Errorf("base level changed to %v", base.level)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"trace", LevelTrace},
		{"TRACE", LevelTrace},
		{"debug", LevelDebug},
		{" info ", LevelInfo},
		{"warn", LevelWarn},
		{"error", LevelError},
		{"debug+2", Level(-2)},
		{"loud", DefaultLevel},
		{"", DefaultLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
	}{
		{"json", FormatJSON},
		{"JSON", FormatJSON},
		{"text", FormatText},
		{"xml", DefaultFormat},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseFormat(tt.in); got != tt.want {
				t.Errorf("ParseFormat(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNames(t *testing.T) {
	if got, want := slices.Collect(Levels()), []string{"trace", "debug", "info", "warn", "error"}; !slices.Equal(got, want) {
		t.Errorf("Levels() = %v, want %v", got, want)
	}

	if got, want := slices.Collect(Formats()), []string{"text", "json"}; !slices.Equal(got, want) {
		t.Errorf("Formats() = %v, want %v", got, want)
	}

	if got := Level(3).String(); got != "Level(3)" {
		t.Errorf("Level(3).String() = %q", got)
	}

	if got := Format(7).String(); got != "Format(7)" {
		t.Errorf("Format(7).String() = %q", got)
	}
}

func TestResolveTimeLayout(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"RFC3339", time.RFC3339},
		{"rfc-3339-nano", time.RFC3339Nano},
		{"Kitchen", time.Kitchen},
		{"ms", time.StampMilli},
		{"none", ""},
		{"", ""},
		{"2006/01/02", "2006/01/02"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := resolveTimeLayout(tt.in); got != tt.want {
				t.Errorf("resolveTimeLayout(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestReplaceAttr(t *testing.T) {
	now := time.Date(2023, 10, 15, 14, 30, 45, 123456789, time.UTC)
	replace := apply(defaults(nil), WithTimeLayout("RFC3339Nano")).replaceAttr()

	a := replace(nil, slog.Time(slog.TimeKey, now))
	if got, want := a.Value.String(), "2023-10-15T14:30:45.123456789Z"; got != want {
		t.Errorf("time = %q, want %q", got, want)
	}

	a = replace(nil, slog.Any(slog.LevelKey, slog.Level(LevelTrace)))
	if got := a.Value.String(); got != "TRACE" {
		t.Errorf("level = %q, want TRACE", got)
	}

	a = replace([]string{"g"}, slog.Time(slog.TimeKey, now))
	if _, ok := a.Value.Any().(time.Time); !ok {
		t.Errorf("grouped time attr was rewritten: %v", a)
	}

	none := apply(defaults(nil), WithTimeLayout("none")).replaceAttr()
	if a := none(nil, slog.Time(slog.TimeKey, now)); !a.Equal(slog.Attr{}) {
		t.Errorf("time attr kept with layout none: %v", a)
	}
}
