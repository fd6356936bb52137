// Package pools provides size-class pooling of byte slices for record
// encoding and decoding.
package pools
