package testing

import (
	"net"
	"os"
	"path"
	"runtime"
)

func init() {
	// cd to the project root so relative paths (logs/, .env) resolve the same
	// way under `go test` as they do for the binaries. Usage:
	//
	//   import (
	//     _ "liyu1981.xyz/roomwatch-service/pkg/testing"
	//   )

	_, filename, _, _ := runtime.Caller(0)           // here runtime will return current file path
	dir := path.Join(path.Dir(filename), "..", "..") // and by double .. we will go to the project root
	err := os.Chdir(dir)
	if err != nil {
		panic(err)
	}
}

// FreeTCPAddr reserves a loopback port and releases it again, for servers
// (like the embedded MQTT broker) that need a concrete address up front.
func FreeTCPAddr() string {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		panic(err)
	}
	defer l.Close()
	return l.Addr().String()
}
