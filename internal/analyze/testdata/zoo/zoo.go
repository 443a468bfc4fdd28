package zoo

import "io"

type Named interface {
	Name() string
}

type Pet interface {
	Named
	Owner() string
}

type Animal struct {
	name string
}

func (a *Animal) Name() string { return a.name }

type Dog struct {
	*Animal
	io.Closer
	owner string
}

func (d Dog) Owner() string { return d.owner }

type Rock struct{}

type ID = string

type hidden struct{}
