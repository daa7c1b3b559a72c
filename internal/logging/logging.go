package logging

import (
	log "github.com/inconshreveable/log15"
)

// Setup routes the root logger to stdout, and to file as well when it is
// not empty. verbose lowers the level to debug.
func Setup(verbose bool, file string) error {
	lvl := log.LvlInfo
	if verbose {
		lvl = log.LvlDebug
	}
	h := log.StdoutHandler
	if file != "" {
		fh, err := log.FileHandler(file, log.LogfmtFormat())
		if err != nil {
			return err
		}
		h = log.MultiHandler(log.StdoutHandler, fh)
	}
	log.Root().SetHandler(log.LvlFilterHandler(lvl, h))
	return nil
}

// New returns a logger tagged with the component name.
func New(component string, ctx ...interface{}) log.Logger {
	return log.New(append([]interface{}{"component", component}, ctx...)...)
}
