package handlers

const (
	// Response messages
	msgGenerated         = "Melody generated"
	msgGeneratedFallback = "No usable notes were generated, returning a default melody"

	maxBatchSize = 100
)
