package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/lazypower/starfield/internal/gateway"
)

var uploadCmd = &cobra.Command{
	Use:   "upload FILE",
	Short: "Merge a graph fragment (JSON or YAML) into your graph",
	Long: "Upload reads a fragment of the form\n\n" +
		"  {\"nodes\": [{\"name\": \"...\", \"level\": 0}], \"edges\": [{\"from\": \"...\", \"to\": \"...\", \"type\": \"PREREQ\"}]}\n\n" +
		"from FILE (or - for stdin). Files ending in .yaml or .yml are read as YAML.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		var (
			data []byte
			err  error
		)
		if name == "-" {
			data, err = io.ReadAll(cmd.InOrStdin())
		} else {
			data, err = os.ReadFile(name)
		}
		if err != nil {
			return fmt.Errorf("read fragment: %w", err)
		}
		text, err := fragmentText(name, data)
		if err != nil {
			return describeError(cmd.ErrOrStderr(), err)
		}

		user, err := resolveUser()
		if err != nil {
			return err
		}
		src, err := newGraphSource(cfg, localFlag, zap.NewNop())
		if err != nil {
			return err
		}
		defer src.Close()

		ctx, cancel := requestContext(cmd)
		defer cancel()
		f, err := gateway.UploadText(ctx, src, user, text)
		if err != nil {
			return describeError(cmd.ErrOrStderr(), err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %d concepts, %d edges\n", good.Sprint("uploaded"), len(f.Nodes), len(f.Edges))
		return nil
	},
}

// fragmentText returns JSON upload text. YAML input is re-encoded as JSON
// so both go through the same parser; YAML that cannot be read is a
// *gateway.ValidationError like malformed JSON.
func fragmentText(name string, data []byte) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
	default:
		return data, nil
	}
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &gateway.ValidationError{Problems: []string{fmt.Sprintf("malformed YAML: %v", err)}}
	}
	out, err := json.Marshal(doc)
	if err != nil {
		return nil, &gateway.ValidationError{Problems: []string{fmt.Sprintf("YAML is not a JSON document: %v", err)}}
	}
	return out, nil
}

func describeError(w io.Writer, err error) error {
	var ve *gateway.ValidationError
	if errors.As(err, &ve) {
		fmt.Fprintln(w, bad.Sprint("fragment rejected:"))
		for _, p := range ve.Problems {
			fmt.Fprintf(w, "  %s %s\n", subtle.Sprint("-"), p)
		}
		return errors.New("invalid fragment")
	}
	if errors.Is(err, gateway.ErrUnavailable) {
		fmt.Fprintln(w, warn.Sprint("graph service unavailable; is `starfield serve` running?"))
	}
	return err
}
