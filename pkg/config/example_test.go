package config_test

import (
	"context"
	"fmt"
	"log"

	"github.com/openfroyo/plangraph/pkg/config"
	"github.com/openfroyo/plangraph/pkg/planning"
)

// ExampleLoader_Decode compiles an inline YAML problem and evaluates a heuristic.
func ExampleLoader_Decode() {
	src := []byte(`
name: cake
facts: [Have(Cake), Eaten(Cake)]
init: [Have(Cake)]
goal: [Have(Cake), Eaten(Cake)]
actions:
  - name: Eat(Cake)
    preconditions: [Have(Cake)]
    effects: [Eaten(Cake), ~Have(Cake)]
  - name: Bake(Cake)
    preconditions: [~Have(Cake)]
    effects: [Have(Cake)]
`)

	loader := config.NewLoader()
	pc, err := loader.Decode(context.Background(), config.FormatYAML, "cake.yaml", src)
	if err != nil {
		log.Fatal(err)
	}
	if err := loader.Validate(pc); err != nil {
		log.Fatal(err)
	}

	problem, state, err := pc.ToProblem()
	if err != nil {
		log.Fatal(err)
	}

	g, err := planning.New(problem, state, planning.Options{})
	if err != nil {
		log.Fatal(err)
	}
	v, _ := g.SetLevel()
	fmt.Println("setlevel:", v)
	// Output: setlevel: 2
}

// ExampleCUEParser_ParseInline generates ground actions with a CUE comprehension.
func ExampleCUEParser_ParseInline() {
	parser := config.NewCUEParser()
	pc, err := parser.ParseInline(context.Background(), `
_rooms: ["A", "B", "C"]
name: "rooms"
facts: [for r in _rooms {"Clean(\(r))"}]
goal: facts
actions: [for r in _rooms {name: "Vacuum(\(r))", effects: ["Clean(\(r))"]}]
`, "rooms.cue")
	if err != nil {
		log.Fatal(err)
	}

	for _, a := range pc.Actions {
		fmt.Println(a.Name)
	}
	// Output:
	// Vacuum(A)
	// Vacuum(B)
	// Vacuum(C)
}
