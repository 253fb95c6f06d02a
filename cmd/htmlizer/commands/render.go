package commands

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/livefir/htmlizer"
	"github.com/livefir/htmlizer/cmd/htmlizer/internal/model"
)

// common flags of render and serve
type options struct {
	template string
	data     string
	config   string
	minify   bool
}

func (o *options) register(fs *flag.FlagSet) {
	fs.StringVar(&o.template, "t", "", "template file (required)")
	fs.StringVar(&o.data, "d", "", "YAML data file")
	fs.StringVar(&o.config, "c", "", "YAML config file")
	fs.BoolVar(&o.minify, "minify", false, "minify the output")
}

func (o *options) compile() (*htmlizer.Template, error) {
	if o.template == "" {
		return nil, fmt.Errorf("template file required (-t)")
	}
	markup, err := os.ReadFile(o.template)
	if err != nil {
		return nil, fmt.Errorf("failed to read template: %w", err)
	}

	var opts []htmlizer.Option
	if o.config != "" {
		cfg, err := htmlizer.LoadConfig(o.config)
		if err != nil {
			return nil, err
		}
		opts = append(opts, htmlizer.WithConfig(cfg))
	}
	if o.minify {
		opts = append(opts, func(c *htmlizer.Config) { c.Minify = true })
	}
	return htmlizer.Compile(string(markup), opts...)
}

func (o *options) model() (*model.Model, error) {
	if o.data == "" {
		return model.New(nil), nil
	}
	return model.Load(o.data)
}

// Render compiles a template, renders it against a data file and prints
// the markup.
func Render(args []string) error {
	return render(args, os.Stdout)
}

func render(args []string, w io.Writer) error {
	var o options
	fs := flag.NewFlagSet("render", flag.ContinueOnError)
	o.register(fs)
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

	view := htmlizer.NewView(tmpl, m.Data(), nil, nil)
	out := view.String()
	if tmpl.Config().Minify {
		if out, err = view.MinifiedString(); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintln(w, out)
	return err
}
