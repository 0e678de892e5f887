// a fast unique time-based ID algorithm from the mongo mgo driver
package store

import (
	"crypto/md5"
	"encoding/binary"
	"fmt"
	"os"
	"sync/atomic"
	"time"
)

// pushIDCounter is atomically incremented when generating a new id.
var pushIDCounter uint32

// machineID stores the machine id generated once and used in subsequent
// PushID calls.
var machineID []byte

func initMachineID() {
	var sum [3]byte
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}
	hw := md5.New()
	hw.Write([]byte(hostname))
	copy(sum[:3], hw.Sum(nil))
	machineID = sum[:]
}

func init() {
	initMachineID()
}

// PushID returns a new unique key for CreateUnique. The leading timestamp
// bytes make keys sort chronologically, so appended children (archived
// rounds, submitted moves) keep their insertion order.
func PushID() string {
	b := make([]byte, 12)
	// Timestamp, 4 bytes, big endian
	binary.BigEndian.PutUint32(b, uint32(time.Now().Unix()))
	// Machine, first 3 bytes of md5(hostname)
	b[4] = machineID[0]
	b[5] = machineID[1]
	b[6] = machineID[2]
	// Pid, 2 bytes, big endian
	pid := os.Getpid()
	b[7] = byte(pid >> 8)
	b[8] = byte(pid)
	// Increment, 3 bytes, big endian
	i := atomic.AddUint32(&pushIDCounter, 1)
	b[9] = byte(i >> 16)
	b[10] = byte(i >> 8)
	b[11] = byte(i)
	return fmt.Sprintf("%x", b)
}
