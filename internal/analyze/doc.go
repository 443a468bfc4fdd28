// Package analyze loads Go packages with golang.org/x/tools/go/packages and
// turns their named structs and interfaces into type declarations.
//
// Unlike the syntactic Go parser, the loader knows the kind of every embedded
// type. Embedded interfaces of a struct are recorded as implemented
// interfaces, and with InferImplements the loader also records every loaded
// interface a struct satisfies through its method set.
package analyze
