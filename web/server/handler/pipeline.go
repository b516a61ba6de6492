package handler

import "log/slog"

// Pipeline defines the processing stages for HTTP requests and responses.
// It provides a fluent interface for configuring serialization and processors.
type Pipeline struct {
	serializer         Serializer
	requestProcessors  []RequestProcessor
	responseProcessors []ResponseProcessor
	logger             *slog.Logger
}

// NewPipeline creates a new empty pipeline for configuring request/response
// processing.
func NewPipeline() *Pipeline {
	return &Pipeline{logger: slog.Default()}
}

// Serialize sets the serializer for this pipeline.
func (p *Pipeline) Serialize(s Serializer) *Pipeline {
	p.serializer = s
	return p
}

// ProcessRequest adds one or more request processors to the pipeline.
func (p *Pipeline) ProcessRequest(processor ...RequestProcessor) *Pipeline {
	p.requestProcessors = append(p.requestProcessors, processor...)
	return p
}

// ProcessResponse adds one or more response processors to the pipeline.
func (p *Pipeline) ProcessResponse(processor ...ResponseProcessor) *Pipeline {
	p.responseProcessors = append(p.responseProcessors, processor...)
	return p
}

// Log sets the logger used to report failed requests.
func (p *Pipeline) Log(logger *slog.Logger) *Pipeline {
	p.logger = logger
	return p
}

// Clone returns a copy of the pipeline, which can be changed without
// affecting p.
func (p *Pipeline) Clone() *Pipeline {
	return &Pipeline{
		serializer:         p.serializer,
		requestProcessors:  append([]RequestProcessor(nil), p.requestProcessors...),
		responseProcessors: append([]ResponseProcessor(nil), p.responseProcessors...),
		logger:             p.logger,
	}
}
