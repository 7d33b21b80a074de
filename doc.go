// Package vectorgate implements a hybrid embedding gateway: it accepts
// batches of text and returns sparse (lexical/BM25), dense (semantic), and
// multi-vector representations computed by pluggable embedding backends.
//
// The package root is the library form of the gateway. It wraps backend
// loading and request orchestration behind one Gateway interface so hosts
// can embed text in-process without running the HTTP server:
//
//	cfg, _ := config.Load()
//	gw, err := vectorgate.New(context.Background(), cfg, nil)
//	if err != nil {
//	    // the sparse backend is mandatory; startup fails without it
//	}
//	defer gw.Close()
//
//	res, err := gw.Embed(ctx, orchestrator.Request{
//	    Texts: []string{"hello world"},
//	    Kinds: types.KindSet{Sparse: true, Dense: true},
//	})
//
// The HTTP server in pkg/server exposes the same orchestrator over REST; the
// vectorgate CLI under cmd/ runs it as a standalone service.
//
// Backend availability is resolved once at startup and never changes while
// the process runs. Requests that span multiple output kinds are routed to a
// multi-functional backend in one call when such a backend is loaded, and
// degrade to partial responses when an optional backend is missing.
package vectorgate
