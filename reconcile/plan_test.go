package reconcile_test

import (
	"context"
	"strings"
	"testing"

	"github.com/psetup/psetup/reconcile"
	"github.com/psetup/psetup/reconcile/mock"
	"github.com/psetup/psetup/resource"
)

func planAdapter(name string, state *rootDef) *mock.Adapter {
	return &mock.Adapter{
		CreateOp: mock.Op("op/"+name, &mock.Payload{
			HasDone: true,
			Done:    true,
			Result:  &reconcile.Candidate{Name: name, State: state},
		}),
	}
}

func TestPlan_Execute(t *testing.T) {
	rootState := &rootDef{Parent: "org/123", DisplayName: "root"}
	childState := &rootDef{Parent: "projects/root", DisplayName: "child"}

	rootA := planAdapter("projects/root", rootState)
	childA := planAdapter("projects/child", childState)
	var childParent string

	p := &reconcile.Plan{
		Reconciler: &reconcile.Reconciler{Awaiter: noSleep()},
	}
	results, err := p.Execute(context.Background(), []reconcile.Step{
		{
			Name:    "root",
			Adapter: rootA,
			Descriptor: func(deps map[string]*reconcile.Result) (resource.Descriptor, error) {
				return rootState, nil
			},
		},
		{
			Name:      "child",
			DependsOn: []string{"root"},
			Adapter:   childA,
			Descriptor: func(deps map[string]*reconcile.Result) (resource.Descriptor, error) {
				// The parent's remote name only exists after its step ran.
				childParent = deps["root"].Name
				return &rootDef{Parent: childParent, DisplayName: "child"}, nil
			},
		},
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if childParent != "projects/root" {
		t.Errorf("child saw parent name %q, want projects/root", childParent)
	}
	if results["root"].Name != "projects/root" {
		t.Errorf("results[root].Name = %s, want projects/root", results["root"].Name)
	}
	if results["child"].Name != "projects/child" {
		t.Errorf("results[child].Name = %s, want projects/child", results["child"].Name)
	}
}

func TestPlan_Execute_cycle(t *testing.T) {
	a := planAdapter("projects/x", &rootDef{Parent: "org/123", DisplayName: "x"})
	b := planAdapter("projects/y", &rootDef{Parent: "org/123", DisplayName: "y"})

	p := &reconcile.Plan{
		Reconciler: &reconcile.Reconciler{Awaiter: noSleep()},
	}
	_, err := p.Execute(context.Background(), []reconcile.Step{
		{Name: "x", DependsOn: []string{"y"}, Adapter: a, Descriptor: staticDescriptor("x")},
		{Name: "y", DependsOn: []string{"x"}, Adapter: b, Descriptor: staticDescriptor("y")},
	})
	if err == nil || !strings.Contains(err.Error(), "cycle") {
		t.Fatalf("Execute() error = %v, want dependency cycle", err)
	}
	// The cycle is rejected before any remote call.
	if n := len(a.Calls()) + len(b.Calls()); n != 0 {
		t.Errorf("cycle caused %d remote calls, want 0", n)
	}
}

func TestPlan_Execute_unknownDependency(t *testing.T) {
	a := planAdapter("projects/x", &rootDef{Parent: "org/123", DisplayName: "x"})

	p := &reconcile.Plan{
		Reconciler: &reconcile.Reconciler{Awaiter: noSleep()},
	}
	_, err := p.Execute(context.Background(), []reconcile.Step{
		{Name: "x", DependsOn: []string{"nope"}, Adapter: a, Descriptor: staticDescriptor("x")},
	})
	if err == nil || !strings.Contains(err.Error(), "unknown step") {
		t.Fatalf("Execute() error = %v, want unknown step", err)
	}
	if n := len(a.Calls()); n != 0 {
		t.Errorf("invalid plan caused %d remote calls, want 0", n)
	}
}

func TestPlan_Execute_duplicateStep(t *testing.T) {
	a := planAdapter("projects/x", &rootDef{Parent: "org/123", DisplayName: "x"})

	p := &reconcile.Plan{
		Reconciler: &reconcile.Reconciler{Awaiter: noSleep()},
	}
	_, err := p.Execute(context.Background(), []reconcile.Step{
		{Name: "x", Adapter: a, Descriptor: staticDescriptor("x")},
		{Name: "x", Adapter: a, Descriptor: staticDescriptor("x")},
	})
	if err == nil || !strings.Contains(err.Error(), "duplicate step") {
		t.Fatalf("Execute() error = %v, want duplicate step", err)
	}
}

func TestPlan_Execute_failureStopsDependents(t *testing.T) {
	failing := &mock.Adapter{
		Existing: []reconcile.Candidate{
			{Name: "projects/a", State: &rootDef{Parent: "org/123", DisplayName: "x"}},
			{Name: "projects/b", State: &rootDef{Parent: "org/123", DisplayName: "x"}},
		},
	}
	dependent := planAdapter("projects/y", &rootDef{Parent: "org/123", DisplayName: "y"})

	p := &reconcile.Plan{
		Reconciler: &reconcile.Reconciler{Awaiter: noSleep()},
	}
	_, err := p.Execute(context.Background(), []reconcile.Step{
		{Name: "x", Adapter: failing, Descriptor: staticDescriptor("x")},
		{Name: "y", DependsOn: []string{"x"}, Adapter: dependent, Descriptor: staticDescriptor("y")},
	})
	if err == nil {
		t.Fatal("Execute() error = nil, want step failure")
	}
	if n := len(dependent.Calls()); n != 0 {
		t.Errorf("dependent of a failed step made %d remote calls, want 0", n)
	}
}

func staticDescriptor(name string) func(map[string]*reconcile.Result) (resource.Descriptor, error) {
	return func(map[string]*reconcile.Result) (resource.Descriptor, error) {
		return &rootDef{Parent: "org/123", DisplayName: name}, nil
	}
}
