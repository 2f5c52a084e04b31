package config

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

const configWatchBGSync = "configWatch_BGSync"

// WatchBg reloads the store when the config file changes on disk. The file is
// replaced via rename on every persist, so the watch is on the directory and
// events are filtered by name. Changes take effect at the next poll cycle.
func (s *Service) WatchBg(ctx context.Context) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logrus.Warnf("%s: could not create watcher: %v", configWatchBGSync, err)
		return
	}
	defer watcher.Close()

	if err = watcher.Add(filepath.Dir(s.path)); err != nil {
		logrus.Warnf("%s: could not watch %s: %v", configWatchBGSync, filepath.Dir(s.path), err)
		return
	}

	base := filepath.Base(s.path)

	for {
		select {
		case <-ctx.Done():
			logrus.Infof("stoping bg %s process", configWatchBGSync)
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}

			if filepath.Base(event.Name) != base {
				continue
			}

			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			if err := s.Reload(); err != nil {
				logrus.Warnf("%s: could not reload config: %v", configWatchBGSync, err)
				continue
			}

			logrus.Debugf("%s: config reloaded", configWatchBGSync)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logrus.Warnf("%s: watch error: %v", configWatchBGSync, err)
		}
	}
}
