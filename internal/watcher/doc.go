// Package watcher turns filesystem notifications into filtered events.
//
// fsnotify is the primary source; polling is the fallback for filesystems
// where it cannot be used (network mounts, some container volumes). Every
// raw event is checked against the engine's active filter and only
// accepted events are emitted. When a loaded ignore file changes the engine
// reloads, so the next event is judged by the new rules.
//
// Usage:
//
//	w, err := watcher.New(eng, watcher.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//	defer w.Stop()
//
//	go func() { _ = w.Start(ctx, []string{"."}) }()
//
//	for ev := range w.Events() {
//	    fmt.Println(ev)
//	}
package watcher
