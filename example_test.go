package threadpool

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"
)

func ExampleThreadPool() {
	pool := New(4)

	count := atomic.Uint32{}
	for i := 0; i < 100; i++ {
		n := uint32(i + 1)
		_ = pool.Execute(func() {
			count.Add(n)
		})
	}
	_ = pool.Close() // Runs everything queued so far.

	fmt.Println(count.Load())

	// Output:
	// 5050
}

func ExampleThreadPool_Close() {
	pool := New(1)
	_ = pool.Execute(func() {
		time.Sleep(10 * time.Millisecond)
		fmt.Println("done")
	})
	_ = pool.Close()

	err := pool.Execute(func() { fmt.Println("never printed") })
	fmt.Println(errors.Is(err, ErrPoolClosed))

	// Output:
	// done
	// true
}

func ExampleNewWith() {
	pool := NewWith(2, Options{PanicPolicy: PanicRecover})
	_ = pool.Execute(func() { panic("oops") })
	_ = pool.Execute(func() {})

	fmt.Println(pool.Close())
	fmt.Println(pool.Size())

	// Output:
	// <nil>
	// 2
}
