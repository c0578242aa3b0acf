// Package vraw implements the line-addressed RTP payload format used for
// uncompressed 4:2:2 video streams on DEF STAN 00-82 style networks.
//
// Every packet starts with a fixed 74 byte header: a 12 byte RTP header
// followed by a 62 byte payload header carrying a 16 bit extended sequence
// number and ten line header slots. Each occupied line header describes one
// scan line fragment in the packet body (length in bytes, scan line number,
// horizontal pixel offset); unused slots are zero filled. Pixel data is
// packed UYVY and follows immediately after the header, fragments
// concatenated in line header order.
//
// The Packetizer fragments whole frames into packets under an MTU budget
// and maintains the 32 bit extended sequence counter and the 90 kHz frame
// timestamp. The Depacketizer reassembles packets back into a frame buffer,
// tolerating loss: a frame is delivered when its marker packet arrives or
// every scan line has been filled, whichever comes first.
//
// All multi-byte header fields are big endian on the wire.
package vraw
