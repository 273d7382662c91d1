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

package httpcore

import (
	"errors"
	"net/url"
	"strings"
)

// Request is one parsed HTTP request line plus headers.
type Request struct {
	Method  string
	RawURI  string
	Path    string // normalized absolute path
	Query   string
	Headers *Headers
	Version string // "1.0" or "1.1"
}

// ErrEmptyPath is returned by NormalizePath when resolving "." / ".." leaves
// nothing.
var ErrEmptyPath = errors.New("httpcore: normalized path is empty")

// ParseRequestTarget splits a request-target into its normalized path and raw
// query string.
func ParseRequestTarget(target string) (path, query string, err error) {
	// url.ParseRequestURI accepts "*" as a path, so the asterisk form the
	// core never needs is rejected here explicitly.
	if target == "*" {
		return "", "", errors.New("httpcore: asterisk-form request target")
	}
	u, err := url.ParseRequestURI(target)
	if err != nil {
		return "", "", err
	}
	p, nerr := NormalizePath(u.EscapedPath())
	if nerr != nil {
		return "", "", nerr
	}
	return p, u.RawQuery, nil
}

// NormalizePath resolves "." and ".." segments of an absolute UNIX-style path,
// deliberately preserving a trailing slash when present in the input.
func NormalizePath(p string) (string, error) {
	if p == "" {
		p = "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	trailingSlash := len(p) > 1 && strings.HasSuffix(p, "/")

	segments := strings.Split(p, "/")
	stack := make([]string, 0, len(segments))
	overflow := false
	for _, seg := range segments {
		switch seg {
		case "", ".":
			continue
		case "..":
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			} else {
				// ".." with nothing left to pop escapes above the root.
				overflow = true
			}
		default:
			stack = append(stack, seg)
		}
	}

	if len(stack) == 0 {
		// Resolving cleanly down to the root ("/a/..") is the root, not an
		// error; only popping past it ("/a/../..") is.
		if overflow {
			return "", ErrEmptyPath
		}
		return "/", nil
	}

	out := "/" + strings.Join(stack, "/")
	if trailingSlash {
		out += "/"
	}
	return out, nil
}
