package source

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/starford/quarry/internal/apperr"
)

// ErrReaderClosed is returned by requests made after Close.
var ErrReaderClosed = errors.New("source: reader closed")

type readReq struct {
	scope, name string
	walk        WalkFunc // set for walks, nil for loads
	reply       chan readResp
}

type readResp struct {
	file IndexFile
	err  error
}

// Reader owns an index Backend. A single goroutine performs every
// open → tree → read → parse sequence, one request at a time; callers get
// back an IndexFile they may share freely. Nothing is cached between
// requests.
type Reader struct {
	backend Backend

	reqCh   chan readReq
	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewReader starts the owner goroutine. Call Close to stop it.
func NewReader(b Backend) *Reader {
	r := &Reader{
		backend: b,
		reqCh:   make(chan readReq),
		stopCh:  make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go r.run()
	return r
}

func (r *Reader) run() {
	defer close(r.stopped)
	for {
		select {
		case <-r.stopCh:
			return
		case req := <-r.reqCh:
			if req.walk != nil {
				req.reply <- readResp{err: r.walk(req.walk)}
				continue
			}
			f, err := r.load(req.scope, req.name)
			req.reply <- readResp{file: f, err: err}
		}
	}
}

func (r *Reader) tree() (Tree, error) {
	repo, err := r.backend.Open()
	if err != nil {
		return nil, err
	}
	return repo.RootTree()
}

func (r *Reader) load(scope, name string) (IndexFile, error) {
	tree, err := r.tree()
	if err != nil {
		return nil, err
	}
	text, found, err := tree.ReadFile(scope, name)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("index file %s/%s: %w", scope, name, apperr.ErrNotFound)
	}
	f, err := ParseIndexFile([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("index file %s/%s: %w", scope, name, err)
	}
	return f, nil
}

func (r *Reader) walk(fn WalkFunc) error {
	tree, err := r.tree()
	if err != nil {
		return err
	}
	return tree.Walk(fn)
}

func (r *Reader) do(ctx context.Context, req readReq) (readResp, error) {
	if r.closed.Load() {
		return readResp{}, ErrReaderClosed
	}
	req.reply = make(chan readResp, 1)
	select {
	case r.reqCh <- req:
	case <-ctx.Done():
		return readResp{}, ctx.Err()
	case <-r.stopped:
		return readResp{}, ErrReaderClosed
	}
	select {
	case resp := <-req.reply:
		return resp, nil
	case <-ctx.Done():
		return readResp{}, ctx.Err()
	}
}

// Load reads and parses the index file of scope/name. A missing file is
// apperr.ErrNotFound.
func (r *Reader) Load(ctx context.Context, scope, name string) (IndexFile, error) {
	resp, err := r.do(ctx, readReq{scope: scope, name: name})
	if err != nil {
		return nil, err
	}
	return resp.file, resp.err
}

// Walk runs fn over every file of the current tree on the owner goroutine.
// fn must not call back into the Reader.
func (r *Reader) Walk(ctx context.Context, fn WalkFunc) error {
	resp, err := r.do(ctx, readReq{walk: fn})
	if err != nil {
		return err
	}
	return resp.err
}

// Close stops the owner goroutine and waits for it to exit.
func (r *Reader) Close() {
	if r.closed.CompareAndSwap(false, true) {
		close(r.stopCh)
	}
	<-r.stopped
}
