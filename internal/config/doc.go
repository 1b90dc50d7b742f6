// Package config loads demo frame scripts written in HCL.
//
// A frame script declares the resources, temporal slots and passes of one
// frame graph, plus how many frames to run and on which backend:
//
//	frames  = 8
//	backend = "trace"
//
//	cache {
//	  frames_in_flight = 1
//	  retention        = 2
//	}
//
//	image "hdr" {
//	  width  = screen.width
//	  height = screen.height
//	  format = "rgba16float"
//	  usage  = ["storage", "texture"]
//	}
//
//	temporal "accum" {
//	  kind   = "pingpong"
//	  width  = screen.width
//	  height = screen.height
//	  format = "rgba16float"
//	  usage  = ["storage", "texture"]
//	}
//
//	pass "lighting" {
//	  write = ["hdr"]
//	}
//
//	pass "taa" {
//	  read  = ["hdr", "accum.history"]
//	  write = ["accum.current"]
//	}
//
// Expressions see a screen object with the width and height given to Parse
// and the functions min, max, floor and ceil. Errors are HCL diagnostics
// carrying source ranges.
package config
