package apps

import (
	"errors"
	"testing"

	"github.com/ciena/dfadapter/events"
	"github.com/ciena/dfadapter/notify"
	"github.com/ciena/dfadapter/registry"
	"github.com/ciena/dfadapter/store"
	"github.com/google/go-cmp/cmp"
)

type mockController struct {
	tables map[events.TableID]registry.Handler
}

func (m *mockController) RegisterTableHandler(table events.TableID, handler registry.Handler) error {
	if _, ok := m.tables[table]; ok {
		return registry.ErrTableRegistered
	}
	m.tables[table] = handler
	return nil
}

func (m *mockController) UnregisterTableHandler(table events.TableID, handler registry.Handler) {
	delete(m.tables, table)
}

func (*mockController) Datapath() events.Datapath { return nil }

// portApp handles local port notifications only
type portApp struct {
	name string
	log  *[]string
}

func (a *portApp) Name() string { return a.name }

func (a *portApp) AddLocalPort(lport store.LogicalPort) {
	*a.log = append(*a.log, a.name+":add:"+lport.ID())
}

func (a *portApp) RemoveLocalPort(lport store.LogicalPort) {
	*a.log = append(*a.log, a.name+":remove:"+lport.ID())
}

// quietApp handles nothing
type quietApp struct{}

func (quietApp) Name() string { return "quiet" }

func TestDispatchInLoadOrder(t *testing.T) {
	var calls []string
	Register("test-port-b", func(Controller, store.Store) (Application, error) {
		return &portApp{name: "b", log: &calls}, nil
	})
	Register("test-port-a", func(Controller, store.Store) (Application, error) {
		return &portApp{name: "a", log: &calls}, nil
	})
	Register("test-quiet", func(Controller, store.Store) (Application, error) {
		return quietApp{}, nil
	})

	d := NewDispatcher([]string{"test-port-b", "", "test-quiet", "test-port-a"})
	if err := d.Load(&mockController{tables: map[events.TableID]registry.Handler{}}, store.NewMemStore()); err != nil {
		t.Fatalf("Unexpected load error : %s", err)
	}
	if len(d.Applications()) != 3 {
		t.Fatalf("Expected 3 applications, got %d", len(d.Applications()))
	}

	port := store.NewPort("p1", "tap-p1", "")
	d.Dispatch(notify.AddLocalPort{LPort: port})
	d.Dispatch(notify.AddRemotePort{LPort: port})
	d.Dispatch(notify.RemoveLocalPort{LPort: port})

	want := []string{"b:add:p1", "a:add:p1", "b:remove:p1", "a:remove:p1"}
	if diff := cmp.Diff(want, calls); diff != "" {
		t.Errorf("Unexpected dispatch order (-want +got):\n%s", diff)
	}
}

func TestLoadUnknown(t *testing.T) {
	d := NewDispatcher([]string{"test-does-not-exist"})
	if err := d.Load(&mockController{tables: map[events.TableID]registry.Handler{}}, store.NewMemStore()); err == nil {
		t.Error("Expected error loading unknown application")
	}
}

func TestLoadPropagatesRegistrationFailure(t *testing.T) {
	factory := func(ctrl Controller, _ store.Store) (Application, error) {
		if err := ctrl.RegisterTableHandler(1, func(*events.PacketIn) {}); err != nil {
			return nil, err
		}
		return quietApp{}, nil
	}
	Register("test-table-1-first", factory)
	Register("test-table-1-second", factory)

	d := NewDispatcher([]string{"test-table-1-first", "test-table-1-second"})
	err := d.Load(&mockController{tables: map[events.TableID]registry.Handler{}}, store.NewMemStore())
	if !errors.Is(err, registry.ErrTableRegistered) {
		t.Errorf("Expected ErrTableRegistered, got %v", err)
	}
}

func TestRegisterTwicePanics(t *testing.T) {
	Register("test-twice", func(Controller, store.Store) (Application, error) { return quietApp{}, nil })
	defer func() {
		if recover() == nil {
			t.Error("Expected panic on duplicate registration")
		}
	}()
	Register("test-twice", func(Controller, store.Store) (Application, error) { return quietApp{}, nil })
}
