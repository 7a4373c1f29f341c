package main

import (
	_ "embed"
	"fmt"
	stdlog "log"
	"net/http"
	"os"
	"runtime"
	"runtime/debug"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/youruser/mend/internal/config"
	"github.com/youruser/mend/internal/diff"
	"github.com/youruser/mend/internal/document"
	"github.com/youruser/mend/internal/engine"
	"github.com/youruser/mend/internal/logging"
	"github.com/youruser/mend/internal/nvim"
	"github.com/youruser/mend/internal/rewrite"
	"github.com/youruser/mend/internal/server"
	"github.com/youruser/mend/internal/session"
	"github.com/youruser/mend/internal/source"
	"github.com/youruser/mend/internal/ui"
)

//go:embed version.txt
var version string

// buildCommit is set via -ldflags or falls back to VCS info from debug.ReadBuildInfo.
var buildCommit string

var log = logging.Get()

func getBuildCommit() string {
	if buildCommit != "" {
		return buildCommit
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, setting := range info.Settings {
		if setting.Key == "vcs.revision" && len(setting.Value) >= 7 {
			return setting.Value[:7]
		}
	}
	return ""
}

func versionString() string {
	v := strings.TrimSpace(version)
	if commit := getBuildCommit(); commit != "" {
		return v + " (" + commit + ")"
	}
	return v
}

func logBuildInfo() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		log.Info("Build info: unavailable")
		return
	}
	v := info.Main.Version
	if commit := getBuildCommit(); commit != "" {
		v = commit
	}
	log.Info("Build: %s; go=%s", v, runtime.Version())
}

func main() {
	var (
		showVersion = pflag.BoolP("version", "v", false, "print version and exit")
		configPath  = pflag.String("config", "", "config file (default ~/.config/mend/config.json)")
		listen      = pflag.String("listen", "", "serve the action protocol over websocket on this address")
		useNvim     = pflag.Bool("nvim", false, "apply rewrites to the buffer at NVIM_LISTEN_ADDRESS")
		prompt      = pflag.StringP("prompt", "p", "", "one-shot: rewrite the input with this instruction and exit")
		filePath    = pflag.StringP("file", "f", "", "one-shot: read input from (and write output to) this file")
		toClipboard = pflag.Bool("copy", false, "one-shot: copy the result to the clipboard")
		showDiff    = pflag.Bool("diff", false, "one-shot: print a unified diff of the change")
	)
	pflag.Parse()

	if *showVersion {
		fmt.Printf("mend %s\n", versionString())
		return
	}

	if os.Getenv("MEND_DEBUG") == "1" {
		fmt.Fprintf(os.Stderr, "mend: process started with MEND_DEBUG=1\n")
	}
	logBuildInfo()
	defer log.Close()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mend: %v\n", err)
		os.Exit(1)
	}
	client := rewrite.NewClient(cfg.BaseURL, cfg.APIKey, cfg.Model,
		time.Duration(cfg.RequestTimeoutSecs)*time.Second)

	if *prompt != "" {
		os.Exit(runOneShot(cfg, client, oneShotOpts{
			path:        *filePath,
			prompt:      *prompt,
			toClipboard: *toClipboard,
			showDiff:    *showDiff,
		}))
	}

	var buf engine.Buffer
	if *useNvim {
		nb, err := nvim.Connect()
		if err != nil {
			fmt.Fprintf(os.Stderr, "mend: %v\n", err)
			os.Exit(1)
		}
		defer nb.Close()
		buf = nb
	} else {
		buf = document.New("")
	}

	d := server.NewDispatcher(buf, client, cfg, versionString())
	defer d.Close()

	if *listen != "" {
		log.Info("Listening on ws://%s/ws", *listen)
		srv := &http.Server{
			Addr:     *listen,
			Handler:  server.NewWSServer(d),
			ErrorLog: stdlog.New(log.Writer(), "http: ", stdlog.LstdFlags),
		}
		if err := srv.ListenAndServe(); err != nil {
			fmt.Fprintf(os.Stderr, "mend: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := server.ServeStdio(d, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "stdin error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFrom(path)
	}
	return config.Load()
}

type oneShotOpts struct {
	path        string
	prompt      string
	toClipboard bool
	showDiff    bool
}

// runOneShot rewrites a single input end to end: file, piped stdin or
// clipboard in, rewritten code out.
func runOneShot(cfg *config.Config, client *rewrite.Client, opts oneShotOpts) int {
	provider := source.New(opts.path)
	code, err := provider.Content()
	if err != nil {
		ui.Error("%v", err)
		return 1
	}
	if strings.TrimSpace(code) == "" {
		ui.Warning("Nothing to rewrite.")
		return 1
	}

	doc := document.New(code)
	events := make(chan session.Event, 1)
	sess := session.New(doc, client, cfg.ContextCapacity, cfg.PromptHistoryCapacity,
		func(ev session.Event) { events <- ev })
	sess.SetWholeFile(true)

	if _, err := sess.Submit(opts.prompt); err != nil {
		ui.Error("%v", err)
		return 1
	}

	ev := <-events
	if ev.Err != nil {
		ui.Error("Rewrite failed: %v", ev.Err)
		return 1
	}

	text, _ := sess.Document()
	if err := provider.Deliver(text, opts.toClipboard); err != nil {
		ui.Error("%v", err)
		return 1
	}
	if ev.Summary != nil {
		ui.PrintSummary(*ev.Summary, ev.Applied, ev.Failed, ev.Warnings)
	}
	if opts.showDiff {
		if u, err := diff.Unified(code, text); err == nil && u != "" {
			fmt.Fprint(os.Stderr, u)
		}
	}
	ui.PrintExplanation(ev.Explanation)
	return 0
}
