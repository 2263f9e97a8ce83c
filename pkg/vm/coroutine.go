package vm

// coroutine is the suspension primitive shared by generators and async
// functions (§4.7's "suspended frame" idea, reworked for this core's
// Go-native call stack: a bytecode function body can't unwind its Go call
// stack and resume it later the way a register-stack VM can). Instead the
// body runs on its own goroutine, and OpYield/OpAwait hand control back to
// whichever goroutine is driving it through an unbuffered channel pair.
// Only one of the two goroutines ever touches VM/Realm state at a time —
// the driver blocks on yieldCh while the body runs, and the body blocks on
// resumeCh while suspended — so this stays within the single-threaded
// execution model (§9 Non-goal: multi-threaded execution) despite using
// real goroutines for the handoff.
type coroutine struct {
	resumeCh chan coroResume
	yieldCh  chan coroYield
}

func newCoroutine() *coroutine {
	return &coroutine{
		resumeCh: make(chan coroResume),
		yieldCh:  make(chan coroYield),
	}
}

// coroResume is what the driver sends to wake the suspended body back up.
type coroResume struct {
	value  Value
	throw  bool // resume by throwing value into the suspension point
	abrupt bool // resume by forcing an early `return value` (generator.return())
}

// coroYield is what the body sends when it suspends or finishes.
// kind distinguishes a mid-body suspension (yield/await) from completion.
type coroYield struct {
	kind  coroYieldKind
	value Value
	err   error
}

type coroYieldKind uint8

const (
	coroYieldValue coroYieldKind = iota // OpYield / OpAwait suspension
	coroDone                            // body returned or the stream completed
	coroThrew                           // body threw an unhandled exception
)

// suspend is called from exec() (OpYield/OpAwait) on the body's own
// goroutine: it reports a value upstream and blocks until resumed.
func (co *coroutine) suspend(value Value) coroResume {
	co.yieldCh <- coroYield{kind: coroYieldValue, value: value}
	return <-co.resumeCh
}

// start launches body on a new goroutine and returns. body is expected to
// send exactly one coroDone or coroThrew coroYield when it finishes,
// after any number of coroYieldValue suspensions driven by suspend().
func (co *coroutine) start(body func()) {
	go body()
}

// resume sends msg to the suspended body and waits for its next yield or
// completion. Must not be called concurrently with another resume on the
// same coroutine, and must not be called before the body has suspended at
// least once (the caller's first resume is implicit via start()).
func (co *coroutine) resume(msg coroResume) coroYield {
	co.resumeCh <- msg
	return <-co.yieldCh
}

// next is used for the very first resume after start(), which carries no
// meaningful resume value — the body hasn't reached a suspension point to
// receive one yet. It just waits for the first yield/completion.
func (co *coroutine) next() coroYield {
	return <-co.yieldCh
}
