package log_test

import (
	"log/slog"
	"os"

	"github.com/ardnew/bloc/log"
)

func Example() {
	logger := log.Make(os.Stdout,
		log.WithTimeLayout("none"),
		log.WithPretty(false))

	logger.Info("rendered", slog.String("file", "index.tpl"))
	logger.Debug("hidden below info")

	// Output:
	// level=INFO msg=rendered file=index.tpl
}

func Example_json() {
	logger := log.Make(os.Stdout,
		log.WithFormat(log.FormatJSON),
		log.WithTimeLayout("none"),
		log.WithPretty(false)).
		With(slog.String("request", "r1"))

	logger.Warn("slow helper", slog.Int("ms", 250))

	// Output:
	// {"level":"WARN","msg":"slow helper","request":"r1","ms":250}
}
