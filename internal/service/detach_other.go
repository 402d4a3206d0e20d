//go:build !unix

package service

import "syscall"

func detachedAttr() *syscall.SysProcAttr {
	return nil
}
