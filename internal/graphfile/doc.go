// Package graphfile reads graph descriptions written in HCL and builds them
// into a vx context.
//
// A description declares data objects and nodes. Objects are referenced from
// node parameters by traversal:
//
//	modules = ["xyz"]
//
//	image "input" {
//	  width  = 320
//	  height = 240
//	  format = "U008"
//	  fill   = 42
//	}
//
//	image "output" {
//	  width  = 320
//	  height = 240
//	}
//
//	scalar "value" {
//	  type  = "int32"
//	  value = 2
//	}
//
//	array "temp" {
//	  item_type = "int32"
//	  capacity  = 374
//	  fill      = 97
//	}
//
//	node "xyz" {
//	  kernel = "org.khronos.example.xyz"
//	  params = [image.input, scalar.value, image.output, array.temp]
//	}
//
// A null entry in params leaves an optional parameter unset. Parameter
// directions come from the kernel signature.
package graphfile
