package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/livefir/htmlizer"
	"github.com/livefir/htmlizer/cmd/htmlizer/internal/model"
)

// Serve renders a template as a live page and reloads the data file into
// its observables whenever the file changes.
func Serve(args []string) error {
	var o options
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	o.register(fs)
	addr := fs.String("addr", ":8080", "listen address")
	interval := fs.Duration("poll", time.Second, "data file poll interval when file events are unavailable")
	if err := fs.Parse(args); err != nil {
		return err
	}

	tmpl, err := o.compile()
	if err != nil {
		return err
	}
	m, err := o.model()
	if err != nil {
		return err
	}

	page := htmlizer.NewPage(tmpl, m.Data())
	page.Watch(m.Observables()...)
	defer page.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if o.data != "" {
		go watch(ctx, o.data, *interval, page, m)
	}

	srv := &http.Server{Addr: *addr, Handler: page.Handler()}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Printf("Serving %s on %s", o.template, *addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// watch reloads the data file whenever it changes. Changes are reported by
// fsnotify; the file is polled instead when no watcher can be set up.
func watch(ctx context.Context, path string, interval time.Duration, page *htmlizer.Page, m *model.Model) {
	w, target, err := watchFile(path)
	if err != nil {
		log.Printf("File watching unavailable, polling every %s: %v", interval, err)
		poll(ctx, path, interval, page, m)
		return
	}
	defer w.Close()
	notify(ctx, w, target, page, m)
}

// watchFile watches the directory holding path, so editors that replace the
// file on save are still seen. It returns the cleaned absolute path events
// are matched against.
func watchFile(path string) (*fsnotify.Watcher, string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, "", err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, "", err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, "", err
	}
	return w, abs, nil
}

func notify(ctx context.Context, w *fsnotify.Watcher, path string, page *htmlizer.Page, m *model.Model) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			log.Printf("Watch error: %v", err)
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != path || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := reload(path, page, m); err != nil {
				log.Printf("Reload failed: %v", err)
			}
		}
	}
}

// poll checks the modification time of the data file every interval.
func poll(ctx context.Context, path string, interval time.Duration, page *htmlizer.Page, m *model.Model) {
	var last time.Time
	if info, err := os.Stat(path); err == nil {
		last = info.ModTime()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		info, err := os.Stat(path)
		if err != nil || !info.ModTime().After(last) {
			continue
		}
		last = info.ModTime()

		if err := reload(path, page, m); err != nil {
			log.Printf("Reload failed: %v", err)
		}
	}
}

func reload(path string, page *htmlizer.Page, m *model.Model) error {
	data, err := model.Read(path)
	if err != nil {
		return err
	}

	var skipped []string
	pushed, err := page.Update(func() { skipped = m.Apply(data) })
	if err != nil {
		return err
	}
	if len(skipped) > 0 {
		log.Printf("Ignored keys not present at startup: %v", skipped)
	}
	if pushed {
		log.Printf("Pushed version %d to %d client(s)", page.Version(), page.Clients())
	}
	return nil
}
