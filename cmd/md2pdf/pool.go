package main

import (
	"context"

	md2pdf "github.com/jmaupetit/md2pdf"
)

// Pool abstracts converter pool operations for testability.
type Pool interface {
	Acquire(ctx context.Context) (CLIConverter, error)
	Release(CLIConverter)
	Size() int
	Close() error
}

// converterPool adapts md2pdf.ConverterPool to Pool.
type converterPool struct {
	pool *md2pdf.ConverterPool
}

// Compile-time check that converterPool implements Pool.
var _ Pool = (*converterPool)(nil)

// newConverterPool is the production Environment.NewPool.
func newConverterPool(size int, opts ...md2pdf.Option) (Pool, error) {
	p, err := md2pdf.NewConverterPool(size, opts...)
	if err != nil {
		return nil, err
	}
	return &converterPool{pool: p}, nil
}

func (p *converterPool) Acquire(ctx context.Context) (CLIConverter, error) {
	conv, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return conv, nil
}

// Release ignores converters the pool did not hand out.
func (p *converterPool) Release(conv CLIConverter) {
	if c, ok := conv.(*md2pdf.Converter); ok {
		p.pool.Release(c)
	}
}

func (p *converterPool) Size() int {
	return p.pool.Size()
}

func (p *converterPool) Close() error {
	return p.pool.Close()
}
