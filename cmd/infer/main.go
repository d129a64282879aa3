package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/getmaxun/maxun-sub002/pkg/capture"
	"github.com/getmaxun/maxun-sub002/pkg/dom"
	"github.com/getmaxun/maxun-sub002/pkg/inference"
)

// infer runs the list-inference pipeline over a saved page snapshot, printing
// the resulting descriptor and field set as JSON. With -rows it also replays
// the inferred selectors against the same snapshot, which is a quick way to
// sanity-check a capture before wiring it into a robot.
func main() {
	var (
		file     = flag.String("file", "", "Path to flattened HTML snapshot")
		baseURL  = flag.String("url", "", "Base URL for resolving relative links")
		anchor   = flag.String("anchor", "", "Selector path of the element the user picked")
		isShadow = flag.Bool("shadow", false, "Anchor path crosses a shadow boundary")
		showRows = flag.Bool("rows", false, "Also replay the field set and print extracted rows")
	)
	flag.Parse()

	if *file == "" || *anchor == "" {
		flag.Usage()
		os.Exit(2)
	}

	htmlBytes, err := os.ReadFile(*file)
	if err != nil {
		log.Fatalf("Failed to read snapshot: %v", err)
	}

	snap, err := dom.Parse(string(htmlBytes), *baseURL)
	if err != nil {
		log.Fatalf("Failed to parse snapshot: %v", err)
	}

	session := capture.NewSession(snap)
	list, fields, err := session.ConfirmList(*anchor, *isShadow)
	if err != nil {
		log.Fatalf("Inference failed: %v", err)
	}

	output := map[string]interface{}{
		"list":   list,
		"fields": fields,
	}
	if *showRows {
		rows := inference.ReplayFields(snap, list, fields, *baseURL)
		output["rows"] = rows
		output["row_count"] = len(rows)
	}

	encoded, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		log.Fatalf("Failed to encode output: %v", err)
	}
	fmt.Println(string(encoded))
}
