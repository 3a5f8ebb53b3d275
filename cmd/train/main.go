package main

// Trains a Markov model from standard input, one word per line with
// empty lines between sentences, then exports the three database
// files into the working directory.

import (
	"bytes"
	"errors"
	"flag"
	"os"
	"os/signal"
	"runtime/pprof"
	"sync/atomic"

	"github.com/Amanieu/cbeardy"
	"github.com/golang/glog"
	"github.com/kho/easy"
	"github.com/kho/stream"
)

var errInterrupted = errors.New("interrupted")

// sentenceSplit splits the corpus into sentence chunks at blank lines.
// Leading blank lines are skipped; the final sentence needs no closing
// blank line.
func sentenceSplit(data []byte, atEOF bool) (int, []byte, error) {
	l := -1
	for i, b := range data {
		if b != '\n' {
			l = i
			break
		}
	}
	if l < 0 {
		return len(data), nil, nil
	}
	for i := l; i+1 < len(data); i++ {
		if data[i] == '\n' && data[i+1] == '\n' {
			return i + 2, data[l:i], nil
		}
	}
	if !atEOF {
		return l, nil, nil
	}
	r := len(data)
	for r > l && data[r-1] == '\n' {
		r--
	}
	return len(data), data[l:r], nil
}

// sentenceTrainer feeds each sentence chunk into the engine.
type sentenceTrainer struct {
	engine *cbeardy.Engine
	stop   *atomic.Bool
	words  []cbeardy.Word
	lines  int
}

func (it *sentenceTrainer) Final() error { return nil }

func (it *sentenceTrainer) Next(sentence []byte) (stream.Iteratee, bool, error) {
	if it.stop.Load() {
		return nil, false, errInterrupted
	}
	for _, line := range bytes.Split(sentence, []byte("\n")) {
		it.lines++
		if it.lines%100000 == 0 {
			glog.Infof("%d lines", it.lines)
		}
		if len(line) == 0 {
			continue
		}
		if len(line) > cbeardy.MAX_WORD_LEN {
			glog.Warningf("word of %d bytes truncated", len(line))
			line = line[:cbeardy.MAX_WORD_LEN]
		}
		it.words = append(it.words, it.engine.Intern(line))
		if len(it.words) == cbeardy.MAX_SENT_WORDS {
			glog.Warningf("sentence longer than %d words, splitting", cbeardy.MAX_SENT_WORDS)
			it.engine.Train(it.words)
			it.words = it.words[:0]
		}
	}
	it.engine.Train(it.words)
	it.words = it.words[:0]
	it.lines++
	if it.lines%100000 == 0 {
		glog.Infof("%d lines", it.lines)
	}
	return it, true, nil
}

func main() {
	cpuprofile := flag.String("cpuprofile", "", "path to write CPU profile")
	memprofile := flag.String("memprofile", "", "path to write memory profile")
	easy.ParseFlagsAndArgs(nil)

	if *cpuprofile != "" {
		w := easy.MustCreate(*cpuprofile)
		pprof.StartCPUProfile(w)
		defer func() {
			pprof.StopCPUProfile()
			w.Close()
		}()
	}

	if *memprofile != "" {
		defer func() {
			w := easy.MustCreate(*memprofile)
			pprof.WriteHeapProfile(w)
			w.Close()
		}()
	}

	// Cooperative shutdown: the handler only flips a flag, which the
	// trainer checks between sentences. An interrupted run still
	// reports statistics; it just writes no databases.
	var stop atomic.Bool
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	go func() {
		<-sig
		stop.Store(true)
	}()

	engine := cbeardy.NewEngine()
	it := &sentenceTrainer{engine: engine, stop: &stop}

	var err error
	glog.Info("training took ", easy.Timed(func() {
		err = stream.Run(stream.EnumRead(os.Stdin, sentenceSplit), it)
	}))
	if err == errInterrupted {
		glog.Info("interrupted, not exporting")
		engine.WriteStats(os.Stdout)
		return
	}
	if err != nil {
		glog.Exitf("error reading corpus: %v", err)
	}

	glog.Info("export took ", easy.Timed(func() {
		err = engine.Export(".")
	}))
	if err != nil {
		glog.Errorf("error exporting model: %v", err)
		engine.WriteStats(os.Stdout)
		os.Exit(1)
	}
	engine.WriteStats(os.Stdout)
}
