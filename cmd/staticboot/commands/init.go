package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/staticboot/internal/config"
)

// InitCmd implements the 'init' command.
type InitCmd struct {
	Force bool   `help:"Overwrite existing configuration file"`
	Dir   string `short:"d" name:"dir" help:"Write staticboot.yaml into this directory instead of --config"`
}

func (i *InitCmd) Run(_ *Global, root *CLI) error {
	path := root.Config
	if i.Dir != "" {
		path = filepath.Join(i.Dir, config.DefaultFile)
	}
	return RunInit(path, i.Force, os.Stdout)
}

// RunInit writes the example configuration and tells the user what to edit.
func RunInit(path string, force bool, w io.Writer) error {
	if err := config.Init(path, force); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(w, "Wrote %s\n", path)
	_, _ = fmt.Fprintln(w, "Set input, output.dir and routes (or auto_discover), then run: staticboot build")
	return nil
}
