package queue

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/captionboard/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
	"go.uber.org/goleak"
)

func job(date string) model.ComputeJob {
	return model.ComputeJob{JobID: "job-" + date, Date: date, EnqueuedAt: time.Now()}
}

func TestInMemoryQueue(t *testing.T) {
	Convey("Given a queue with capacity 2", t, func() {
		ctx := context.Background()
		q := NewInMemoryQueue(WithCapacity(2))

		Convey("It starts empty and open", func() {
			So(q.Len(ctx), ShouldEqual, 0)
			So(q.IsClosed(), ShouldBeFalse)
		})

		Convey("When a job is enqueued and dequeued", func() {
			So(q.Enqueue(ctx, job("2025-04-07")), ShouldBeTrue)
			So(q.Len(ctx), ShouldEqual, 1)
			got := <-q.Dequeue(ctx)

			Convey("Then it comes back intact", func() {
				So(got.Date, ShouldEqual, "2025-04-07")
				So(got.JobID, ShouldEqual, "job-2025-04-07")
				So(q.Len(ctx), ShouldEqual, 0)
			})
		})

		Convey("When the queue is full", func() {
			So(q.Enqueue(ctx, job("2025-04-07")), ShouldBeTrue)
			So(q.Enqueue(ctx, job("2025-04-08")), ShouldBeTrue)

			Convey("Then further jobs are rejected without blocking", func() {
				So(q.Enqueue(ctx, job("2025-04-09")), ShouldBeFalse)
				So(q.Len(ctx), ShouldEqual, 2)
			})
		})

		Convey("When the context is already canceled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()

			Convey("Then enqueue is rejected", func() {
				So(q.Enqueue(cctx, job("2025-04-07")), ShouldBeFalse)
			})
		})

		Convey("When the queue is closed with jobs pending", func() {
			So(q.Enqueue(ctx, job("2025-04-07")), ShouldBeTrue)
			So(q.Close(), ShouldBeNil)

			Convey("Then new jobs are rejected", func() {
				So(q.IsClosed(), ShouldBeTrue)
				So(q.Enqueue(ctx, job("2025-04-08")), ShouldBeFalse)
			})

			Convey("Then pending jobs drain before the channel closes", func() {
				ch := q.Dequeue(ctx)
				first, ok := <-ch
				So(ok, ShouldBeTrue)
				So(first.Date, ShouldEqual, "2025-04-07")
				_, ok = <-ch
				So(ok, ShouldBeFalse)
			})

			Convey("Then closing again is harmless", func() {
				So(q.Close(), ShouldBeNil)
			})
		})
	})
}

func TestInMemoryQueue_ConcurrentProducersConsumers(t *testing.T) {
	defer goleak.VerifyNone(t)

	Convey("Given several producers and consumers", t, func() {
		ctx := context.Background()
		q := NewInMemoryQueue(WithCapacity(16))
		const producers, perProducer = 8, 50

		var consumed sync.WaitGroup
		var mu sync.Mutex
		seen := make(map[string]bool)
		for i := 0; i < 4; i++ {
			consumed.Add(1)
			go func() {
				defer consumed.Done()
				for j := range q.Dequeue(ctx) {
					mu.Lock()
					seen[j.JobID] = true
					mu.Unlock()
				}
			}()
		}

		var produced sync.WaitGroup
		for p := 0; p < producers; p++ {
			produced.Add(1)
			go func(p int) {
				defer produced.Done()
				for n := 0; n < perProducer; n++ {
					j := model.ComputeJob{JobID: fmt.Sprintf("%d-%d", p, n), Date: "2025-04-07"}
					for !q.Enqueue(ctx, j) {
						time.Sleep(time.Millisecond)
					}
				}
			}(p)
		}
		produced.Wait()
		So(q.Close(), ShouldBeNil)
		consumed.Wait()

		Convey("Then every job is delivered exactly once", func() {
			So(len(seen), ShouldEqual, producers*perProducer)
			So(q.Len(ctx), ShouldEqual, 0)
		})
	})
}
