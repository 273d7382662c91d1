/*
 * MIT License
 *
 * Copyright (c) 2026 transferd authors
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package buffer

// Adder produces bytes into a LockingBuffer. AddToBuffer is called by the
// channel whenever the write-path buffer has room; implementations may write as
// many bytes as fit and must report one of the Result codes describing what
// happened.
type Adder interface {
	// AddToBuffer writes into buf and reports OK, ENoData, ENoBufs or
	// EAgain. An EAgain result obliges the implementation to call the
	// wake callback passed to SetWake once more data is ready.
	AddToBuffer(buf *Buffer) (Result, error)

	// SetWake registers the callback an EAgain result promises to invoke
	// asynchronously. Called once, before the first AddToBuffer.
	SetWake(wake func())
}

// Consumer drains bytes from a LockingBuffer.
type Consumer interface {
	// ConsumeBuffer is called by the channel whenever the read-path
	// buffer is non-empty. It reports OK, ECanceled (no more interest)
	// or an error.
	ConsumeBuffer(buf *Buffer) (Result, error)

	// SetWake registers the callback a Result that pauses consumption
	// (e.g. the HTTP consumer waiting for a body sink) uses to ask the
	// channel to resume calling ConsumeBuffer.
	SetWake(wake func())
}
