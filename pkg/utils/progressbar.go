package utils

import (
	"sync"

	"github.com/cheggaaa/pb/v3"
)

var bar_tmpl = `{{string . "prefix"}}: {{ bar . "<" "-" "->" "." "."}} {{counters . }} {{percent .}}`

func NewProgressBar(total int, prefix string) *pb.ProgressBar {
	bar := pb.New(total).SetTemplateString(bar_tmpl).Set("prefix", prefix)
	return bar
}

const (
	Users  = "Membres"
	Topics = "Sujets"
	Posts  = "Messages"
)

// Progress shows one bar per exported entity kind. A nil *Progress is a
// valid, silent progress.
type Progress struct {
	mu   sync.Mutex
	bars map[string]*pb.ProgressBar
	pool *pb.Pool
}

func NewProgress() *Progress {
	p := &Progress{bars: map[string]*pb.ProgressBar{}}
	for _, name := range []string{Users, Topics, Posts} {
		p.bars[name] = NewProgressBar(0, name)
	}
	return p
}

func (p *Progress) Start() error {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pool != nil {
		return nil
	}
	pool, err := pb.StartPool(p.bars[Users], p.bars[Topics], p.bars[Posts])
	if err != nil {
		return err
	}
	p.pool = pool
	return nil
}

func (p *Progress) Stop() error {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pool == nil {
		return nil
	}
	err := p.pool.Stop()
	p.pool = nil
	return err
}

func (p *Progress) SetTotal(name string, total int) {
	if p == nil {
		return
	}
	if bar, ok := p.bars[name]; ok {
		bar.SetTotal(int64(total))
	}
}

func (p *Progress) SetCurrent(name string, current int) {
	if p == nil {
		return
	}
	if bar, ok := p.bars[name]; ok {
		bar.SetCurrent(int64(current))
	}
}

func (p *Progress) Increment(name string) {
	if p == nil {
		return
	}
	if bar, ok := p.bars[name]; ok {
		bar.Increment()
	}
}

func (p *Progress) Current(name string) int64 {
	if p == nil {
		return 0
	}
	if bar, ok := p.bars[name]; ok {
		return bar.Current()
	}
	return 0
}
