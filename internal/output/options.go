package output

import "io"

// Option is a functional option for configuring Printer instances.
type Option func(*Printer)

// WithStyles configures the printer to use the provided StyleProvider for styling.
// If the provider is nil or not available, the printer will fall back to plain text.
func WithStyles(provider StyleProvider) Option {
	return func(p *Printer) {
		if provider != nil && provider.IsAvailable() {
			p.styleProvider = provider
		}
	}
}

// WithWriter configures the printer to write output to the specified writer.
// Default is os.Stdout if not specified.
func WithWriter(writer io.Writer) Option {
	return func(p *Printer) {
		if writer != nil {
			p.writer = writer
		}
	}
}

// WithErrorWriter sets the destination for Errorln. Defaults to the main writer.
func WithErrorWriter(writer io.Writer) Option {
	return func(p *Printer) {
		if writer != nil {
			p.errWriter = writer
		}
	}
}

// PlainText forces the printer to use plain text output, ignoring any StyleProvider.
func PlainText() Option {
	return func(p *Printer) {
		p.mode = ModePlain
	}
}

// Silent configures the printer to suppress all output.
func Silent() Option {
	return func(p *Printer) {
		p.silent = true
	}
}
