package metrics

const namespace = "shopqa"

var registered bool

// Register registers every HTTP, pipeline, generation and embedding metric. Must be called once from main.
func Register() {
	if registered {
		return
	}
	registerHTTP()
	registerEmbedding()
	registerGeneration()
	registerPipeline()
	registered = true
}
