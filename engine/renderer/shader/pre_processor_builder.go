package shader

// PreProcessorOption is a functional option applied to a PreProcessor during construction via NewPreProcessor.
type PreProcessorOption func(*preProcessor)

// WithIncludeResolver sets the resolver used for #include. The default serves only the
// embedded standard library.
//
// Parameters:
//   - r: the resolver to use
//
// Returns:
//   - PreProcessorOption: a function that applies the resolver option to a preprocessor
func WithIncludeResolver(r IncludeResolver) PreProcessorOption {
	return func(p *preProcessor) {
		if r != nil {
			p.resolver = r
		}
	}
}

// WithErrorSink sets the sink that receives the first error of the run.
//
// Parameters:
//   - s: the sink to report to
//
// Returns:
//   - PreProcessorOption: a function that applies the sink option to a preprocessor
func WithErrorSink(s ErrorSink) PreProcessorOption {
	return func(p *preProcessor) {
		if s != nil {
			p.sink = s
		}
	}
}

// WithMaxAsserts sets the assertion cap. It must match the number of assertion counters
// bound by the registry.
//
// Parameters:
//   - n: the maximum number of #assert directives
//
// Returns:
//   - PreProcessorOption: a function that applies the limit to a preprocessor
func WithMaxAsserts(n int) PreProcessorOption {
	return func(p *preProcessor) {
		if n > 0 {
			p.maxAsserts = n
		}
	}
}
