//go:build linux

/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package server

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// listen opens a non-blocking IPv4/IPv6 TCP listening socket on addr:port,
// bypassing net.Listen so the resulting fd can be registered directly with
// the reactor's epoll instance (net.Listener's fd is not otherwise
// exposed).
func listen(addr string, port int) (fd int, err error) {
	ip := net.ParseIP(addr)
	if addr == "" {
		ip = net.IPv4zero
	}
	if ip == nil {
		resolved, err := net.ResolveIPAddr("ip", addr)
		if err != nil {
			return -1, fmt.Errorf("resolve %q: %w", addr, err)
		}
		ip = resolved.IP
	}

	domain := unix.AF_INET
	var sa unix.Sockaddr
	if ip4 := ip.To4(); ip4 != nil {
		var a unix.SockaddrInet4
		copy(a.Addr[:], ip4)
		a.Port = port
		sa = &a
	} else {
		domain = unix.AF_INET6
		var a unix.SockaddrInet6
		copy(a.Addr[:], ip.To16())
		a.Port = port
		sa = &a
	}

	fd, err = unix.Socket(domain, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return -1, err
	}
	if err = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return -1, err
	}
	if err = unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return -1, err
	}
	if err = unix.Listen(fd, unix.SOMAXCONN); err != nil {
		unix.Close(fd)
		return -1, err
	}
	return fd, nil
}

// acceptNonblock accepts one pending connection, returning ok=false (no
// error) when none is pending (EAGAIN).
func acceptNonblock(listenFd int) (fd int, ok bool, err error) {
	nfd, _, err := unix.Accept4(listenFd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return -1, false, nil
		}
		return -1, false, err
	}
	return nfd, true, nil
}
