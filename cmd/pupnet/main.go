// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command pupnet packages a published application for Linux, macOS and
// Windows.
package main

import (
	"fmt"
	"os"

	"github.com/goplus/pupnet/cmd/pupnet/internal"
)

func main() {
	os.Exit(run(internal.Execute))
}

// run returns 0 on success, 1 when execute fails and -1 when it panics.
func run(execute func() error) (code int) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "pupnet: internal error: %v\n", r)
			code = -1
		}
	}()
	if err := execute(); err != nil {
		return 1
	}
	return 0
}
