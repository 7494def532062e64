package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/rhuss/respkit/pkg/api"
)

type decoder func([]byte) (any, error)

func union[T any](decode func([]byte) (T, error)) decoder {
	return func(b []byte) (any, error) { return decode(b) }
}

func object[T any]() decoder {
	return func(b []byte) (any, error) {
		v := new(T)
		if err := json.Unmarshal(b, v); err != nil {
			return nil, err
		}
		return v, nil
	}
}

var decoders = map[string]decoder{
	"item":        union(api.DecodeItem),
	"content":     union(api.DecodeContentPart),
	"annotation":  union(api.DecodeAnnotation),
	"tool":        union(api.DecodeTool),
	"event":       union(api.DecodeStreamEvent),
	"action":      union(api.DecodeComputerAction),
	"text-format": union(api.DecodeTextFormat),
	"response":    object[api.Response](),
	"request":     object[api.CreateResponsesRequest](),
}

func decoderNames() []string {
	names := make([]string, 0, len(decoders))
	for n := range decoders {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

func newDecodeCmd(*app) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "decode <" + strings.Join(decoderNames(), "|") + ">",
		Short: "Decode a JSON payload and print the Go variant it becomes",
		Long: `Read a JSON object, or an array of them, from stdin or --file and decode
it as the named union. For each value the Go type is printed, followed by
the value encoded back to JSON. Unknown discriminators show up as the
Unknown* fallback of the union.`,
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: decoderNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if file != "" && file != "-" {
				f, err := os.Open(file)
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			data, err := io.ReadAll(in)
			if err != nil {
				return err
			}
			return decodeAndPrint(cmd.OutOrStdout(), decoders[args[0]], data)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "read from this file instead of stdin")
	return cmd
}

func decodeAndPrint(w io.Writer, decode decoder, data []byte) error {
	data = bytes.TrimSpace(data)
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("input is not valid JSON")
	}

	var elems [][]byte
	if doc := gjson.ParseBytes(data); doc.IsArray() {
		doc.ForEach(func(_, v gjson.Result) bool {
			elems = append(elems, []byte(v.Raw))
			return true
		})
	} else {
		elems = [][]byte{data}
	}

	for i, raw := range elems {
		v, err := decode(raw)
		if err != nil {
			if len(elems) > 1 {
				return fmt.Errorf("element %d: %w", i, err)
			}
			return err
		}
		out, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding %T: %w", v, err)
		}
		fmt.Fprintf(w, "# %T\n%s\n", v, out)
	}
	return nil
}
