package reconcile

import (
	"context"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/psetup/psetup/resource"
)

// DefaultConcurrency is the default maximum number of resources reconciled
// at once.
var DefaultConcurrency = runtime.NumCPU() * 2

// A Step is one resource in a plan.
//
// Cross-resource data flow is explicit: a step's descriptor is built from
// the results of the steps it depends on, for example a provider step
// reading its parent pool's name from the pool step's result. Steps share
// no ambient state.
type Step struct {
	// Name identifies the step within the plan.
	Name string

	// DependsOn lists steps whose results this step's descriptor needs.
	DependsOn []string

	// Adapter performs the remote calls for the step's resource kind.
	Adapter Adapter

	// Descriptor builds the declared resource once every dependency has
	// been reconciled. deps maps each entry of DependsOn to its result.
	Descriptor func(deps map[string]*Result) (resource.Descriptor, error)
}

// A Plan reconciles a set of interdependent resources.
//
// Independent steps run concurrently; a step waits for all of its
// dependencies first. Each step's reconciliation runs to completion before
// its result is visible to dependents. Any failure cancels the steps still
// waiting; steps already running finish their current remote call.
type Plan struct {
	// Concurrency sets the maximum steps reconciled at once. If not set,
	// DefaultConcurrency is used.
	Concurrency int

	// Reconciler reconciles each step's resource.
	Reconciler *Reconciler

	// Logger logs plan progress. If not set, logs are discarded.
	Logger *zap.Logger
}

// Execute reconciles all steps in dependency order and returns the result
// of every step by name.
//
// A dependency cycle or a reference to an unknown step fails before any
// remote call is made.
func (p *Plan) Execute(ctx context.Context, steps []Step) (map[string]*Result, error) {
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := checkOrder(steps); err != nil {
		return nil, err
	}

	c := p.Concurrency
	if c == 0 {
		c = DefaultConcurrency
	}
	logger.Debug("Execute plan", zap.Int("steps", len(steps)), zap.Int("concurrency", c))

	var mu sync.Mutex
	results := make(map[string]*Result, len(steps))
	done := make(map[string]chan struct{}, len(steps))
	for _, s := range steps {
		done[s.Name] = make(chan struct{})
	}

	sem := make(chan int, c)
	g, ctx := errgroup.WithContext(ctx)
	for _, s := range steps {
		s := s
		g.Go(func() error {
			for _, dep := range s.DependsOn {
				select {
				case <-done[dep]:
				case <-ctx.Done():
					return ctx.Err()
				}
			}

			sem <- 1
			defer func() { <-sem }()

			deps := make(map[string]*Result, len(s.DependsOn))
			mu.Lock()
			for _, dep := range s.DependsOn {
				deps[dep] = results[dep]
			}
			mu.Unlock()

			desired, err := s.Descriptor(deps)
			if err != nil {
				return errors.Wrapf(err, "build descriptor for step %s", s.Name)
			}
			res, err := p.Reconciler.Reconcile(ctx, s.Adapter, desired)
			if err != nil {
				return errors.Wrapf(err, "step %s", s.Name)
			}

			mu.Lock()
			results[s.Name] = res
			mu.Unlock()

			// Close after recording the result so dependents always see it.
			close(done[s.Name])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	logger.Info("Plan done", zap.Int("steps", len(steps)))
	return results, nil
}

// checkOrder validates step references and rejects dependency cycles, using
// a directed graph over the steps.
func checkOrder(steps []Step) error {
	dg := simple.NewDirectedGraph()
	nodes := make(map[string]int64, len(steps))
	names := make(map[int64]string, len(steps))
	for _, s := range steps {
		if _, ok := nodes[s.Name]; ok {
			return errors.Errorf("duplicate step %s", s.Name)
		}
		n := dg.NewNode()
		dg.AddNode(n)
		nodes[s.Name] = n.ID()
		names[n.ID()] = s.Name
	}
	for _, s := range steps {
		for _, dep := range s.DependsOn {
			from, ok := nodes[dep]
			if !ok {
				return errors.Errorf("step %s depends on unknown step %s", s.Name, dep)
			}
			if from == nodes[s.Name] {
				return errors.Errorf("step %s depends on itself", s.Name)
			}
			dg.SetEdge(dg.NewEdge(dg.Node(from), dg.Node(nodes[s.Name])))
		}
	}
	if _, err := topo.Sort(dg); err != nil {
		if u, ok := err.(topo.Unorderable); ok {
			var cycles []string
			for _, cycle := range u {
				var members []string
				for _, n := range cycle {
					members = append(members, names[n.ID()])
				}
				sort.Strings(members)
				cycles = append(cycles, strings.Join(members, ", "))
			}
			return errors.Errorf("dependency cycle between steps: %s", strings.Join(cycles, "; "))
		}
		return errors.Wrap(err, "order steps")
	}
	return nil
}
