package mutable_test

import (
	"context"
	"fmt"

	"pipelined.dev/graph/mutable"
)

type gain struct {
	mutable.Context
	value float64
}

func (g *gain) Set(v float64) mutable.Mutation {
	return g.Mutate(func() {
		g.value = v
	})
}

func Example_mutation() {
	g := gain{Context: mutable.Mutable(), value: 1}
	d := mutable.NewDestination()

	// control goroutine
	p := mutable.NewPusher(d)
	p.Put(g.Set(0.5))
	p.Push(context.Background())

	// processing goroutine, between blocks
	d.Receive().Apply()
	fmt.Println(g.value)
	// Output:
	// 0.5
}
