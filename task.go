package microloop

import "sync"

// TaskID identifies a scheduled task. IDs are assigned from a single
// monotonic counter shared by both queue classes, which gives a total order
// over task creation useful for deterministic tie-breaking and debugging.
type TaskID uint64

// QueueClass distinguishes the two queues of the queue pair.
type QueueClass uint8

const (
	// MicroQueue is the high-priority queue. It is drained to exhaustion,
	// including microtasks enqueued by other microtasks, before any
	// macrotask runs.
	MicroQueue QueueClass = iota
	// MacroQueue is the low-priority queue, modelling timer and I/O
	// callbacks. Exactly one macrotask runs per scheduler iteration.
	MacroQueue
)

// String returns a human-readable representation of the queue class.
func (c QueueClass) String() string {
	switch c {
	case MicroQueue:
		return "micro"
	case MacroQueue:
		return "macro"
	default:
		return "unknown"
	}
}

// Task is an atomic unit of deferred work: a zero-argument callback plus
// scheduling metadata. A task runs exactly once and runs to completion
// before the scheduler proceeds.
type Task struct {
	// Runnable is the callback. A nil Runnable is a no-op.
	Runnable func()

	id         TaskID
	class      QueueClass
	enqueuedAt uint64 // logical tick at scheduling time
}

// ID returns the task's monotonic identifier.
func (t Task) ID() TaskID { return t.id }

// Class returns the queue class the task was scheduled on.
func (t Task) Class() QueueClass { return t.class }

// EnqueuedAt returns the logical tick at which the task was scheduled.
func (t Task) EnqueuedAt() uint64 { return t.enqueuedAt }

const (
	// chunkSize is the number of tasks per node in the taskQueue linked
	// list. Fixed-size arrays provide cache locality and amortize
	// allocations.
	chunkSize = 128
)

// chunkPool prevents GC thrashing under sustained microtask churn.
var chunkPool = sync.Pool{
	New: func() any {
		return &chunk{}
	},
}

// chunk is a fixed-size node in the chunked linked-list.
// It uses readPos/pos cursors for O(1) push/pop without shifting.
type chunk struct {
	tasks   [chunkSize]Task
	next    *chunk
	readPos int // first unread slot
	pos     int // first unused slot
}

func newChunk() *chunk {
	c := chunkPool.Get().(*chunk)
	c.pos = 0
	c.readPos = 0
	c.next = nil
	return c
}

// returnChunk clears task slots before pooling, so the pool does not retain
// references to task closures.
func returnChunk(c *chunk) {
	for i := 0; i < c.pos; i++ {
		c.tasks[i] = Task{}
	}
	c.pos = 0
	c.readPos = 0
	c.next = nil
	chunkPool.Put(c)
}

// taskQueue is a chunked linked-list FIFO.
//
// It is NOT safe for concurrent use: the loop is single-goroutine by
// contract, and the queue relies on that rather than on atomics.
type taskQueue struct {
	head   *chunk
	tail   *chunk
	length int
}

// Push appends a task to the queue.
func (q *taskQueue) Push(task Task) {
	if q.tail == nil {
		q.tail = newChunk()
		q.head = q.tail
	}

	if q.tail.pos == len(q.tail.tasks) {
		newTail := newChunk()
		q.tail.next = newTail
		q.tail = newTail
	}

	q.tail.tasks[q.tail.pos] = task
	q.tail.pos++
	q.length++
}

// Pop removes and returns the oldest task. Returns false if the queue is
// empty.
func (q *taskQueue) Pop() (Task, bool) {
	if q.head == nil {
		return Task{}, false
	}

	if q.head.readPos >= q.head.pos {
		// If this is the only chunk, the queue is empty; reset cursors for
		// reuse.
		if q.head == q.tail {
			q.head.pos = 0
			q.head.readPos = 0
			return Task{}, false
		}
		oldHead := q.head
		q.head = q.head.next
		returnChunk(oldHead)
	}

	if q.head.readPos >= q.head.pos {
		return Task{}, false
	}

	task := q.head.tasks[q.head.readPos]
	// Zero out the popped slot for GC safety.
	q.head.tasks[q.head.readPos] = Task{}
	q.head.readPos++
	q.length--

	if q.head.readPos >= q.head.pos {
		if q.head == q.tail {
			q.head.pos = 0
			q.head.readPos = 0
			return task, true
		}
		oldHead := q.head
		q.head = q.head.next
		returnChunk(oldHead)
	}

	return task, true
}

// Length returns the queue length.
func (q *taskQueue) Length() int {
	return q.length
}

// IsEmpty returns true if the queue holds no tasks.
func (q *taskQueue) IsEmpty() bool {
	return q.length == 0
}
