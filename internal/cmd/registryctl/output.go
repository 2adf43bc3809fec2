package registryctl

import (
	"encoding/json"
	"fmt"
	"io"

	registryservice "github.com/louisbranch/gns/internal/services/registry/api/grpc/registry"
	"github.com/louisbranch/gns/internal/services/registry/journal"
)

func printJSON(out io.Writer, value any) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(value); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

func printEnvelope(out io.Writer, env journal.Envelope) error {
	rendered, err := registryservice.EnvelopeToStruct(env)
	if err != nil {
		return err
	}
	return printJSON(out, rendered.AsMap())
}
