/*
Package graph allows to build real-time DSP graphs from reusable
components and drive them one block at a time.

Concept

The graph has a fixed topology. It is assembled once, checked for shape
mismatches and then processed block after block without allocation:

    Port - owned output of a component, a grid of channels by samples;
    Coupler - read-only view of signal, every Port is a Coupler;
    Component - the unit of processing that writes its owned Ports.

Routing

Inputs are bound with Connect, which checks the number of channels.
Combinators Sum, Product, Maximum and Switch are couplers themselves
and compute their value when a sample is read:

    bus, err := graph.NewSum(osc1.Output("out"), osc2.Output("out"))
    in, err := graph.Connect(bus, 2)

Any error returned while the graph is built matches ErrConfiguration.

Components

Components embed Base, which splits every processing call into steps of at
most StepSize samples, fires trigger points and keeps outputs silent when
the component is disabled:

    func (c *Gain) Process(offset, n int) { c.Run(c, offset, n) }
    func (c *Gain) Step(offset, n int)    { ... }

Container drives its parts in declared order. This order is the only
ordering guarantee: a component must be declared after every component it
reads from. SummingArray additionally sums an output of its parts, which is
how a pool of voices collapses to one signal.

Execution

Graph is the host side. Each Process call applies pending mutations,
drains timestamped events from a lock-free queue into event sinks,
processes the root component and advances parameter ramps:

    g, err := graph.New(root, 512, graph.WithEventSinks(voices))
    go func() { g.Send(midi.Event{Kind: midi.NoteOn, Key: 60, Value: 1}) }()
    err = g.Process(256)

Send and Push are the only methods that can be called from control
goroutines.
*/
package graph
