package navigation

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/papapumpkin/specvizitor/internal/cache"
	"github.com/papapumpkin/specvizitor/internal/catalog"
	"github.com/papapumpkin/specvizitor/internal/objid"
	"github.com/papapumpkin/specvizitor/internal/review"
	"github.com/papapumpkin/specvizitor/internal/telemetry"
	"github.com/papapumpkin/specvizitor/internal/viewer"
)

// recorder is a Deliverer that records delivered IDs. Deliveries of IDs in
// block wait for cancellation.
type recorder struct {
	mu        sync.Mutex
	delivered []string
	block     map[string]bool
	cleared   int
}

func (r *recorder) Deliver(ctx context.Context, obj viewer.Object) (viewer.Delivery, error) {
	r.mu.Lock()
	blocked := r.block[obj.ID.String()]
	r.mu.Unlock()
	if blocked {
		<-ctx.Done()
		return viewer.Delivery{}, ctx.Err()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delivered = append(r.delivered, obj.ID.String())
	return viewer.Delivery{Object: obj}, nil
}

func (r *recorder) Cancel(cancel context.CancelFunc) { cancel() }

func (r *recorder) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cleared++
}

func (r *recorder) ids() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.delivered...)
}

func ints(ns ...int64) []objid.ID {
	ids := make([]objid.ID, len(ns))
	for i, n := range ns {
		ids[i] = objid.Int(n)
	}
	return ids
}

// writeReview saves a review file with IDs 1..n and the given flags.
func writeReview(t *testing.T, n int, flags ...string) string {
	t.Helper()
	ids := make([]objid.ID, n)
	for i := range n {
		ids[i] = objid.Int(int64(i + 1))
	}
	rd, err := review.Create(ids, flags)
	if err != nil {
		t.Fatalf("review.Create: %v", err)
	}
	path := filepath.Join(t.TempDir(), "review.csv")
	if err := rd.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	return path
}

func open(t *testing.T, n int, opts Options) (*Controller, *recorder) {
	t.Helper()
	rec := &recorder{}
	if opts.Bus == nil {
		opts.Bus = rec
	}
	c := New(opts)
	if err := c.Open(writeReview(t, n, "emission", "contaminated"), nil); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if out := c.Wait(); out.Err != nil {
		t.Fatalf("initial load: %v", out.Err)
	}
	return c, rec
}

func switchTo(t *testing.T, c *Controller, dir Direction, starred bool) {
	t.Helper()
	if err := c.Switch(dir, starred); err != nil {
		t.Fatalf("Switch(%s, %v): %v", dir, starred, err)
	}
	if out := c.Wait(); out.Err != nil {
		t.Fatalf("load: %v", out.Err)
	}
}

func TestSwitch_Wraparound(t *testing.T) {
	t.Parallel()
	c, rec := open(t, 3, Options{})

	switchTo(t, c, Previous, false)
	if got := c.Index(); got != 2 {
		t.Errorf("previous from 0 = %d, want 2", got)
	}
	switchTo(t, c, Next, false)
	if got := c.Index(); got != 0 {
		t.Errorf("next from 2 = %d, want 0", got)
	}
	if got := strings.Join(rec.ids(), ","); got != "1,3,1" {
		t.Errorf("delivered = %s, want 1,3,1", got)
	}
	if c.State() != StateIdle {
		t.Errorf("state = %s, want idle", c.State())
	}
}

func TestProperty_NavigationWraps(t *testing.T) {
	t.Parallel()
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 30
	properties := gopter.NewProperties(params)

	properties.Property("next then previous returns to the start", prop.ForAll(
		func(n, k int) bool {
			k %= n
			c := New(Options{})
			rd, err := review.Create(idsUpTo(n), nil)
			if err != nil {
				return false
			}
			if err := c.start("mem.csv", rd, nil); err != nil {
				return false
			}
			c.Wait()
			if err := c.GoToIndex(k + 1); err != nil {
				return false
			}
			c.Wait()
			if err := c.Switch(Next, false); err != nil {
				return false
			}
			c.Wait()
			if c.Index() != (k+1)%n {
				return false
			}
			if err := c.Switch(Previous, false); err != nil {
				return false
			}
			c.Wait()
			return c.Index() == k
		},
		gen.IntRange(1, 40),
		gen.IntRange(0, 1000),
	))
	properties.TestingRun(t)
}

func idsUpTo(n int) []objid.ID {
	ids := make([]objid.ID, n)
	for i := range n {
		ids[i] = objid.Int(int64(i + 1))
	}
	return ids
}

func readEvents(t *testing.T, path string) map[string]int {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open telemetry: %v", err)
	}
	defer f.Close()
	kinds := map[string]int{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var evt telemetry.Event
		if err := json.Unmarshal(sc.Bytes(), &evt); err != nil {
			t.Fatalf("bad event %q: %v", sc.Text(), err)
		}
		kinds[evt.Kind]++
	}
	return kinds
}

func TestSwitch_StarredOnly(t *testing.T) {
	t.Parallel()
	telPath := filepath.Join(t.TempDir(), "events.jsonl")
	tel, err := telemetry.NewEmitter(telPath)
	if err != nil {
		t.Fatal(err)
	}
	c, _ := open(t, 5, Options{Telemetry: tel})

	if err := c.Switch(Next, true); !errors.Is(err, ErrNoStarred) {
		t.Fatalf("err = %v, want ErrNoStarred", err)
	}
	if c.Index() != 0 {
		t.Errorf("refused switch moved to %d", c.Index())
	}

	for _, id := range []string{"2", "4"} {
		if err := c.GoToID(id); err != nil {
			t.Fatalf("GoToID(%s): %v", id, err)
		}
		c.Wait()
		if err := c.SetStarred(true); err != nil {
			t.Fatalf("SetStarred: %v", err)
		}
	}
	if err := c.GoToIndex(1); err != nil {
		t.Fatal(err)
	}
	c.Wait()

	want := []int{1, 3, 1}
	for _, w := range want {
		switchTo(t, c, Next, true)
		if c.Index() != w {
			t.Fatalf("next starred = %d, want %d", c.Index(), w)
		}
	}
	switchTo(t, c, Previous, true)
	if c.Index() != 3 {
		t.Errorf("previous starred = %d, want 3", c.Index())
	}

	if err := tel.Close(); err != nil {
		t.Fatal(err)
	}
	kinds := readEvents(t, telPath)
	if kinds[telemetry.KindNavRefused] != 1 {
		t.Errorf("refusals = %d, want 1", kinds[telemetry.KindNavRefused])
	}
	if kinds[telemetry.KindReviewEdit] != 2 {
		t.Errorf("edits = %d, want 2", kinds[telemetry.KindReviewEdit])
	}
	if kinds[telemetry.KindProjectOpened] != 1 {
		t.Errorf("opened = %d, want 1", kinds[telemetry.KindProjectOpened])
	}
}

func subsetOf(t *testing.T, ids ...int64) *Subset {
	t.Helper()
	keys := make([]objid.Key, len(ids))
	for i, id := range ids {
		keys[i] = objid.Key{objid.Int(id)}
	}
	cat, err := catalog.Create(keys)
	if err != nil {
		t.Fatalf("catalog.Create: %v", err)
	}
	return NewSubset("/data/subset.csv", cat)
}

func TestSubset_Navigation(t *testing.T) {
	t.Parallel()
	c, _ := open(t, 5, Options{})
	if err := c.SetSubset(subsetOf(t, 2, 4)); err != nil {
		t.Fatal(err)
	}

	for _, want := range []int{1, 3, 1} {
		switchTo(t, c, Next, false)
		if c.Index() != want {
			t.Fatalf("next in subset = %d, want %d", c.Index(), want)
		}
	}
	info, paused, ok := c.SubsetInfo()
	if !ok || paused || info != "Subset: subset.csv\nObject: 1/2" {
		t.Errorf("SubsetInfo = %q, %v, %v", info, paused, ok)
	}

	if err := c.PauseSubset(true); err != nil {
		t.Fatal(err)
	}
	switchTo(t, c, Next, false)
	if c.Index() != 2 {
		t.Errorf("paused next = %d, want 2", c.Index())
	}
	if info, _, _ := c.SubsetInfo(); !strings.HasSuffix(info, "Object: -/2") {
		t.Errorf("info outside subset = %q", info)
	}

	if err := c.StopSubset(); err != nil {
		t.Fatal(err)
	}
	if _, _, ok := c.SubsetInfo(); ok {
		t.Error("subset still active after stop")
	}
	if err := c.StopSubset(); !errors.Is(err, ErrNoSubset) {
		t.Errorf("second stop = %v, want ErrNoSubset", err)
	}
}

func TestSubset_NoOverlap(t *testing.T) {
	t.Parallel()
	c, _ := open(t, 4, Options{})
	if err := c.SetSubset(subsetOf(t, 99)); err != nil {
		t.Fatal(err)
	}
	if err := c.Switch(Next, false); !errors.Is(err, ErrSubsetNoOverlap) {
		t.Fatalf("err = %v, want ErrSubsetNoOverlap", err)
	}
	if c.Index() != 0 {
		t.Errorf("index = %d, want unchanged 0", c.Index())
	}
}

func TestSubset_LoadFromFile(t *testing.T) {
	t.Parallel()
	cachePath := filepath.Join(t.TempDir(), "cache.toml")
	cc, err := cache.Load(cachePath)
	if err != nil {
		t.Fatal(err)
	}
	c, _ := open(t, 5, Options{Cache: cc})

	path := filepath.Join(t.TempDir(), "subset.csv")
	if err := os.WriteFile(path, []byte("id,ra\n3,1.0\n5,2.0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := c.LoadSubset(path); err != nil {
		t.Fatalf("LoadSubset: %v", err)
	}
	switchTo(t, c, Next, false)
	if c.Index() != 2 {
		t.Errorf("index = %d, want 2 (ID 3)", c.Index())
	}
	if cc.LastSubsetFile != path {
		t.Errorf("cached subset = %q", cc.LastSubsetFile)
	}
	if err := c.LoadSubset(filepath.Join(t.TempDir(), "missing.csv")); err == nil {
		t.Error("missing subset file accepted")
	}
}

func TestGoTo_Errors(t *testing.T) {
	t.Parallel()
	c, _ := open(t, 5, Options{})
	tests := []struct {
		name string
		do   func() error
		want error
	}{
		{"invalid id", func() error { return c.GoToID("abc") }, ErrInvalidID},
		{"missing id", func() error { return c.GoToID("99") }, ErrIDNotFound},
		{"index zero", func() error { return c.GoToIndex(0) }, ErrIndexOutOfRange},
		{"index past end", func() error { return c.GoToIndex(6) }, ErrIndexOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.do(); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
	if c.Index() != 0 {
		t.Errorf("index = %d after refused jumps", c.Index())
	}

	if err := c.GoToID(" 4 "); err != nil {
		t.Fatalf("GoToID: %v", err)
	}
	c.Wait()
	if c.Index() != 3 {
		t.Errorf("GoToID(4) index = %d, want 3", c.Index())
	}
	if err := c.GoToIndex(5); err != nil {
		t.Fatal(err)
	}
	c.Wait()
	if c.Index() != 4 {
		t.Errorf("GoToIndex(5) index = %d, want 4", c.Index())
	}
}

func TestNoProject(t *testing.T) {
	t.Parallel()
	c := New(Options{})
	if c.State() != StateNoProject || c.Index() != -1 {
		t.Errorf("state = %s index = %d", c.State(), c.Index())
	}
	for name, err := range map[string]error{
		"switch":  c.Switch(Next, false),
		"goto":    c.GoToID("1"),
		"save":    c.Save(),
		"comment": c.SetComment("x"),
		"reload":  c.Reload(),
	} {
		if !errors.Is(err, ErrNoProject) {
			t.Errorf("%s: err = %v, want ErrNoProject", name, err)
		}
	}
	if c.Title() != "Specvizitor" {
		t.Errorf("title = %q", c.Title())
	}
}

func TestOpen_RestoresCachedIndex(t *testing.T) {
	t.Parallel()
	path := writeReview(t, 5)
	cachePath := filepath.Join(t.TempDir(), "cache.toml")

	cc, _ := cache.Load(cachePath)
	cc.LastInspectionFile = path
	cc.SetObjectIndex(3)

	c := New(Options{Cache: cc})
	if err := c.Open(path, nil); err != nil {
		t.Fatal(err)
	}
	c.Wait()
	if c.Index() != 3 {
		t.Errorf("index = %d, want cached 3", c.Index())
	}

	if err := c.Switch(Next, false); err != nil {
		t.Fatal(err)
	}
	c.Wait()
	reloaded, err := cache.Load(cachePath)
	if err != nil {
		t.Fatal(err)
	}
	if j, ok := reloaded.ObjectIndex(5); !ok || j != 4 {
		t.Errorf("persisted index = %d, %v, want 4", j, ok)
	}

	other := writeReview(t, 5)
	if err := c.Open(other, nil); err != nil {
		t.Fatal(err)
	}
	c.Wait()
	if c.Index() != 0 {
		t.Errorf("index for another file = %d, want 0", c.Index())
	}
}

func TestOpen_OutOfRangeCacheFallsBack(t *testing.T) {
	t.Parallel()
	path := writeReview(t, 2)
	cc, _ := cache.Load(filepath.Join(t.TempDir(), "cache.toml"))
	cc.LastInspectionFile = path
	cc.SetObjectIndex(7)
	c := New(Options{Cache: cc})
	if err := c.Open(path, nil); err != nil {
		t.Fatal(err)
	}
	c.Wait()
	if c.Index() != 0 {
		t.Errorf("index = %d, want 0", c.Index())
	}
}

func TestGraceDelay_CoalescesRapidSwitches(t *testing.T) {
	t.Parallel()
	rec := &recorder{}
	c := New(Options{Bus: rec, Grace: 200 * time.Millisecond})
	if err := c.Open(writeReview(t, 10), nil); err != nil {
		t.Fatal(err)
	}
	for range 3 {
		if err := c.Switch(Next, false); err != nil {
			t.Fatal(err)
		}
	}
	if c.State() != StateLoading {
		t.Errorf("state = %s, want loading", c.State())
	}
	out := c.Wait()
	if out.Err != nil {
		t.Fatalf("load: %v", out.Err)
	}
	if got := rec.ids(); len(got) != 1 || got[0] != "4" {
		t.Errorf("delivered = %v, want only ID 4", got)
	}
	if out.Delivery.Object.Index != 3 {
		t.Errorf("outcome index = %d, want 3", out.Delivery.Object.Index)
	}
}

func TestCancel_StaleLoadDiscarded(t *testing.T) {
	t.Parallel()
	rec := &recorder{block: map[string]bool{"2": true}}
	var mu sync.Mutex
	var outcomes []Outcome
	c, _ := open(t, 3, Options{Bus: rec, OnLoad: func(o Outcome) {
		mu.Lock()
		defer mu.Unlock()
		outcomes = append(outcomes, o)
	}})

	if err := c.Switch(Next, false); err != nil {
		t.Fatal(err)
	}
	time.Sleep(20 * time.Millisecond)
	if err := c.Switch(Next, false); err != nil {
		t.Fatal(err)
	}
	out := c.Wait()
	if out.Err != nil || out.Delivery.Object.Index != 2 {
		t.Fatalf("outcome = %+v, want index 2", out)
	}
	if got := strings.Join(rec.ids(), ","); got != "1,3" {
		t.Errorf("delivered = %s, want 1,3", got)
	}
	mu.Lock()
	defer mu.Unlock()
	for _, o := range outcomes {
		if o.Delivery.Object.ID.String() == "2" {
			t.Error("stale load reported")
		}
	}
}

func TestClose(t *testing.T) {
	t.Parallel()
	rec := &recorder{}
	c := New(Options{Bus: rec, Grace: time.Hour})
	if err := c.Open(writeReview(t, 3), nil); err != nil {
		t.Fatal(err)
	}
	c.Close()
	if c.State() != StateNoProject {
		t.Errorf("state = %s, want no_project", c.State())
	}
	if len(rec.ids()) != 0 || rec.cleared != 1 {
		t.Errorf("delivered = %v cleared = %d", rec.ids(), rec.cleared)
	}
}

func TestTitle(t *testing.T) {
	t.Parallel()
	c, _ := open(t, 3, Options{})
	if err := c.GoToIndex(2); err != nil {
		t.Fatal(err)
	}
	c.Wait()
	if got, want := c.Title(), "review.csv – ID 2 [#2/3] – Specvizitor"; got != want {
		t.Errorf("Title = %q, want %q", got, want)
	}
}

func TestCreate_SavesAndOpens(t *testing.T) {
	t.Parallel()
	cat, err := catalog.Create([]objid.Key{{objid.Int(7)}, {objid.Int(3)}})
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "new.csv")
	c := New(Options{})
	if err := c.Create(path, cat, []string{"emission"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	c.Wait()
	obj, err := c.Current()
	if err != nil {
		t.Fatal(err)
	}
	if obj.ID.Int64() != 3 || obj.Entry == nil {
		t.Errorf("current = %+v, want ID 3 with a catalogue entry", obj)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("inspection file not written: %v", err)
	}
	if err := c.Create(path, nil, nil); err == nil {
		t.Error("Create without a catalogue succeeded")
	}
}

func TestStateString(t *testing.T) {
	t.Parallel()
	for s, want := range map[State]string{StateNoProject: "no_project", StateIdle: "idle", StateLoading: "loading", State(9): "unknown"} {
		if s.String() != want {
			t.Errorf("%d.String() = %q, want %q", s, s.String(), want)
		}
	}
}

func TestWrap(t *testing.T) {
	t.Parallel()
	tests := []struct{ j, n, want int }{{-1, 3, 2}, {3, 3, 0}, {7, 3, 1}, {0, 1, 0}, {-4, 3, 2}}
	for _, tt := range tests {
		if got := wrap(tt.j, tt.n); got != tt.want {
			t.Errorf("wrap(%d, %d) = %d, want %d", tt.j, tt.n, got, tt.want)
		}
	}
}
