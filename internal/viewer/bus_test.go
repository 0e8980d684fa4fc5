package viewer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/papapumpkin/specvizitor/internal/config"
	"github.com/papapumpkin/specvizitor/internal/loader"
	"github.com/papapumpkin/specvizitor/internal/objid"
)

// shown returns what bus displays.
func shown(t *testing.T, bus *Bus) Shown {
	t.Helper()
	var v Shown
	if err := bus.View(func(s Shown) error { v = s; return nil }); err != nil {
		t.Fatalf("View: %v", err)
	}
	return v
}

func TestBus_ViewReportsDisplayedObject(t *testing.T) {
	fl := &fakeLoader{slots: map[string]func(objid.ID) loader.Slot{"Image Cutout": imageSlot(2, 2)}}
	bus := NewBus(fl, nil)
	if err := bus.Configure(testWidgets()[:1], config.SpectralLinesConfig{}, nil); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if v := shown(t, bus); v.Loaded || len(v.Elements) != 1 {
		t.Fatalf("before delivery: loaded = %v, %d elements", v.Loaded, len(v.Elements))
	}

	if _, err := bus.Deliver(context.Background(), testObject(t, 2)); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	v := shown(t, bus)
	if !v.Loaded || v.Object.ID != objid.Int(2) || v.Elements[0].DataSlot().ID != objid.Int(2) {
		t.Errorf("view = loaded %v, object %s", v.Loaded, v.Object.ID)
	}

	errStop := errors.New("stop")
	if err := bus.View(func(Shown) error { return errStop }); !errors.Is(err, errStop) {
		t.Errorf("View error = %v, want the callback's error", err)
	}

	bus.Clear()
	if shown(t, bus).Loaded {
		t.Error("view still loaded after Clear")
	}
}

// blockingPlugin signals from TweakWidgets and waits for release.
type blockingPlugin struct {
	NopPlugin
	entered chan struct{}
	release chan struct{}
}

func (p *blockingPlugin) Name() string { return "blocking" }

func (p *blockingPlugin) TweakWidgets(Tweak) {
	close(p.entered)
	<-p.release
}

func TestBus_CancelWaitsForElementUpdate(t *testing.T) {
	fl := &fakeLoader{slots: map[string]func(objid.ID) loader.Slot{"Image Cutout": imageSlot(2, 2)}}
	p := &blockingPlugin{entered: make(chan struct{}), release: make(chan struct{})}
	bus := NewBus(fl, nil)
	if err := bus.Configure(testWidgets()[:1], config.SpectralLinesConfig{}, []Plugin{p}); err != nil {
		t.Fatalf("Configure: %v", err)
	}

	obj := testObject(t, 2)
	ctx, cancel := context.WithCancel(context.Background())
	delivered := make(chan error, 1)
	go func() {
		_, err := bus.Deliver(ctx, obj)
		delivered <- err
	}()
	<-p.entered

	cancelled := make(chan struct{})
	go func() {
		bus.Cancel(cancel)
		close(cancelled)
	}()
	select {
	case <-cancelled:
		t.Fatal("Cancel returned while elements were being updated")
	case <-time.After(50 * time.Millisecond):
	}

	close(p.release)
	if err := <-delivered; err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	<-cancelled
	if ctx.Err() == nil {
		t.Error("context not cancelled")
	}
	if v := shown(t, bus); v.Object.ID != objid.Int(2) || v.Elements[0].DataSlot().ID != objid.Int(2) {
		t.Errorf("elements show %s, want the completed delivery of 2", v.Elements[0].DataSlot().ID)
	}
}

func TestBus_CancelBeforeUpdateTouchesNothing(t *testing.T) {
	fl := &fakeLoader{slots: map[string]func(objid.ID) loader.Slot{"Image Cutout": imageSlot(2, 2)}}
	bus := NewBus(fl, nil)
	if err := bus.Configure(testWidgets()[:1], config.SpectralLinesConfig{}, nil); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	bus.Cancel(cancel)
	if _, err := bus.Deliver(ctx, testObject(t, 2)); !errors.Is(err, context.Canceled) {
		t.Fatalf("Deliver error = %v, want context.Canceled", err)
	}
	if shown(t, bus).Loaded {
		t.Error("cancelled delivery became the displayed object")
	}
}
