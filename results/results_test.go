package results

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"dutchAuction/game"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
)

func sampleTrials() []game.Trial {
	return []game.Trial{
		{BlockNo: 0, TrialNo: 0, Prop: 0.5, Qty: 300, StartPrice: 312.7531, EndPrice: 0, OppBid: 150.25,
			Status: game.TrialWon, Step: 40, Price: 150.25, Winner: "Gladys"},
		{BlockNo: 0, TrialNo: 1, Prop: 1.0 / 3, Qty: 200, StartPrice: 200, EndPrice: 0, OppBid: 99.125,
			Status: game.TrialPending},
	}
}

func TestFileName(t *testing.T) {
	start := time.Date(2024, 3, 1, 9, 5, 7, 123e6, time.UTC)
	check.Equal(t, "2024-03-01T090507.123Z.csv", FileName(start))
}

func TestFileSink_WritesHeaderAndEmptyResolutionFields(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	sink, err := NewFileSink(dir, time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	assert.NoError(t, err)

	assert.NoError(t, sink.Save(context.Background(), sampleTrials()))

	raw, err := os.ReadFile(sink.Path())
	assert.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	check.Equal(t, 3, len(lines))
	check.Equal(t, "blockNo,trialNo,prop,qty,startPrice,endPrice,step,oppBid,price,winner", lines[0])
	check.Equal(t, "0,0,0.5,300,312.7531,0,40,150.25,150.25,Gladys", lines[1])
	check.Equal(t, "0,1,0.3333333333333333,200,200,0,,99.125,,", lines[2])

	// no temp files left behind
	entries, err := os.ReadDir(dir)
	assert.NoError(t, err)
	check.Equal(t, 1, len(entries))
}

func TestFileSink_RoundTrip(t *testing.T) {
	sink, err := NewFileSink(t.TempDir(), time.Now())
	assert.NoError(t, err)

	want := sampleTrials()
	assert.NoError(t, sink.Save(context.Background(), want))

	// a second save fully replaces the first
	want[1].Status = game.TrialWon
	want[1].Winner = "Fred"
	want[1].Price = 120
	want[1].Step = 32
	assert.NoError(t, sink.Save(context.Background(), want))

	got, err := ReadFile(sink.Path())
	assert.NoError(t, err)
	check.Equal(t, want, got)
}

func TestReadFile_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := ReadFile(filepath.Join(dir, "missing.csv"))
	check.Error(t, err)

	bad := filepath.Join(dir, "bad.csv")
	assert.NoError(t, os.WriteFile(bad, []byte("a,b,c,d,e,f,g,h,i,j\n"), 0o644))
	_, err = ReadFile(bad)
	check.Error(t, err)

	garbled := filepath.Join(dir, "garbled.csv")
	body := strings.Join(Header, ",") + "\nx,0,0.5,300,300,0,,150,,\n"
	assert.NoError(t, os.WriteFile(garbled, []byte(body), 0o644))
	_, err = ReadFile(garbled)
	check.Error(t, err)
}

type fakeStore struct {
	mu    sync.Mutex
	name  string
	saved [][]game.Trial
	runs  []string
	err   error
	gate  chan struct{}
}

func (s *fakeStore) Name() string { return s.name }

func (s *fakeStore) SaveTrials(_ context.Context, runID string, trials []game.Trial) error {
	if s.gate != nil {
		<-s.gate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, trials)
	s.runs = append(s.runs, runID)
	return s.err
}

func TestMirror_DeliversToEveryStore(t *testing.T) {
	a := &fakeStore{name: "a"}
	b := &fakeStore{name: "b", err: errors.New("down")}
	m := NewMirror("run-1", nil, a, b)

	assert.NoError(t, m.Save(context.Background(), sampleTrials()))
	m.Close()

	check.Equal(t, 1, len(a.saved))
	check.Equal(t, 1, len(b.saved))
	check.Equal(t, []string{"run-1"}, a.runs)
	check.Equal(t, sampleTrials(), a.saved[0])

	check.Error(t, m.Save(context.Background(), sampleTrials()))
	m.Close()
}

func TestMirror_DropsOldestWhenFull(t *testing.T) {
	gate := make(chan struct{})
	s := &fakeStore{name: "slow", gate: gate}
	m := NewMirror("run-1", nil, s)

	total := cap(m.queue) + 10
	for i := 0; i < total; i++ {
		tr := []game.Trial{{TrialNo: i}}
		assert.NoError(t, m.Save(context.Background(), tr))
	}
	close(gate)
	m.Close()

	// the worker may have taken one early table; the newest always survives
	check.True(t, len(s.saved) <= cap(m.queue)+1)
	last := s.saved[len(s.saved)-1]
	check.Equal(t, total-1, last[0].TrialNo)
}

type errSink struct{ err error }

func (s errSink) Save(context.Context, []game.Trial) error { return s.err }

func TestMulti_JoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	ok := Multi{errSink{}, errSink{}}
	check.NoError(t, ok.Save(context.Background(), nil))

	failing := Multi{errSink{}, errSink{err: boom}}
	err := failing.Save(context.Background(), nil)
	check.True(t, errors.Is(err, boom))
}
