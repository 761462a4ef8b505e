// Package unwind walks the call stack of the calling goroutine.
//
// A Context captures the register state at the point Capture is called. A
// Cursor created from it starts at the frame that called Capture and moves
// to older frames with Step:
//
//	ctx, err := unwind.Capture()
//	if err != nil {
//		return err
//	}
//	cur, err := unwind.NewCursor(ctx)
//	if err != nil {
//		return err
//	}
//	for {
//		ip, _ := cur.Register(abi.RegIP)
//		fmt.Printf("%#x\n", ip)
//		more, err := cur.Step()
//		if err != nil || !more {
//			break
//		}
//	}
//
// Frames are interpreted by an engine (see package abi). Capture uses the
// engine of package local, CaptureEngine accepts any other.
//
// Neither Context nor Cursor may be used from more than one goroutine at a
// time; clones are independent and can be handed to other goroutines.
package unwind
