package pipeline

import "github.com/nao1215/dossiersim/internal/model"

// normalize turns an adapter's return value into an envelope.
//
// Envelopes pass through with empty collections filled in and a missing
// input set to the step input. A map becomes the output of a simulated
// envelope; any other value is stored under output["value"].
func normalize(out any, input any) model.Envelope {
	switch v := out.(type) {
	case model.Envelope:
		return complete(v, input)
	case *model.Envelope:
		if v == nil {
			return bare(map[string]any{}, input)
		}
		return complete(*v, input)
	case map[string]any:
		return bare(v, input)
	case nil:
		return bare(map[string]any{}, input)
	default:
		return bare(map[string]any{"value": v}, input)
	}
}

func complete(env model.Envelope, input any) model.Envelope {
	if env.Input == nil {
		env.Input = input
	}
	if env.Output == nil {
		env.Output = map[string]any{}
	}
	if env.ProcessingSteps == nil {
		env.ProcessingSteps = []model.ProcessingStep{}
	}
	if env.Insights == nil {
		env.Insights = []string{}
	}
	env.Provenance = env.Provenance.Normalize()
	return env
}

func bare(output map[string]any, input any) model.Envelope {
	return model.Envelope{
		Input:           input,
		Output:          output,
		ProcessingSteps: []model.ProcessingStep{},
		Insights:        []string{},
		Provenance:      model.ProvenanceSimulated,
	}
}
