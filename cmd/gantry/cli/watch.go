package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/deepnoodle-ai/gantry/engine"
)

// watchDebounce coalesces the bursts of filesystem events editors emit
// for a single save.
const watchDebounce = 300 * time.Millisecond

// watchAndRun executes the graph once, then re-runs it whenever the graph
// definition or stylesheet changes. It returns when the context is
// cancelled.
func watchAndRun(ctx context.Context, graphPath, stylesheetPath string, runOnce func(context.Context) (*engine.RunResult, error)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return &exitError{code: ExitUsage, message: fmt.Sprintf("error creating watcher: %v", err)}
	}
	defer watcher.Close()

	// Watch directories, not files: editors replace files on save, which
	// drops a direct file watch.
	watched := map[string]bool{}
	for _, path := range []string{graphPath, stylesheetPath} {
		if path == "" {
			continue
		}
		dir := filepath.Dir(path)
		if !watched[dir] {
			if err := watcher.Add(dir); err != nil {
				return &exitError{code: ExitUsage, message: fmt.Sprintf("error watching %s: %v", dir, err)}
			}
			watched[dir] = true
		}
	}

	relevant := func(event fsnotify.Event) bool {
		if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
			return false
		}
		name := filepath.Clean(event.Name)
		return name == filepath.Clean(graphPath) ||
			(stylesheetPath != "" && name == filepath.Clean(stylesheetPath))
	}

	execute := func() {
		result, err := runOnce(ctx)
		if err != nil {
			printError(err.Error())
			return
		}
		printRunSummary(result)
	}

	execute()
	fmt.Println(dimStyle.Sprintf("Watching %s for changes (ctrl-c to stop)...", graphPath))

	var debounce *time.Timer
	pending := make(chan struct{}, 1)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !relevant(event) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(watchDebounce, func() {
				select {
				case pending <- struct{}{}:
				default:
				}
			})
		case <-pending:
			fmt.Println(dimStyle.Sprint("Definition changed, re-running..."))
			execute()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			printError(fmt.Sprintf("watch error: %v", err))
		}
	}
}
