// Command vroombench generates a synthetic CSV file and drives the
// vroom façade end to end (Open, ReadAll, WriteTable), reporting
// throughput the same way the teacher's cmd/benchmark does.
package main

import (
	"bufio"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"github.com/csvquery/vroom"
)

func main() {
	sizeMB := 500
	if len(os.Args) >= 2 {
		if n, err := strconv.Atoi(os.Args[1]); err == nil {
			sizeMB = n
		}
	}

	fmt.Printf("Generating %d MB CSV...\n", sizeMB)
	tmpDir, err := os.MkdirTemp("", "vroom_bench")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(tmpDir)

	csvPath := filepath.Join(tmpDir, "bench.csv")
	bytesWritten, rows := generateCSV(csvPath, int64(sizeMB)*1024*1024)
	fmt.Printf("Generated %d rows (%.2f MB)\n", rows, float64(bytesWritten)/1024/1024)

	fmt.Println("Starting read...")
	cfg := vroom.Config{NumWorkers: runtime.NumCPU(), Verbose: true}

	start := time.Now()
	r, err := vroom.Open(csvPath, cfg)
	if err != nil {
		panic(err)
	}
	defer r.Close()

	table, err := r.ReadAll()
	if err != nil {
		panic(err)
	}
	readElapsed := time.Since(start)

	readMBPerSec := float64(bytesWritten) / 1024 / 1024 / readElapsed.Seconds()
	fmt.Printf("\n--------------------------------------------------\n")
	fmt.Printf("Read throughput:  %.2f MB/s\n", readMBPerSec)
	fmt.Printf("Read time:        %v\n", readElapsed)
	fmt.Printf("Rows:             %d\n", table.RowCount())
	if r.HasErrors() {
		fmt.Printf("Diagnostics:      %d\n", len(r.Errors()))
	}
	fmt.Printf("--------------------------------------------------\n")

	outPath := filepath.Join(tmpDir, "bench.vroom")
	out, err := os.Create(outPath)
	if err != nil {
		panic(err)
	}

	start = time.Now()
	if err := vroom.WriteTable(out, table, vroom.WriteConfig{}); err != nil {
		panic(err)
	}
	out.Close()
	writeElapsed := time.Since(start)

	info, err := os.Stat(outPath)
	if err != nil {
		panic(err)
	}
	writeMBPerSec := float64(bytesWritten) / 1024 / 1024 / writeElapsed.Seconds()
	fmt.Printf("Write throughput: %.2f MB/s\n", writeMBPerSec)
	fmt.Printf("Write time:       %v\n", writeElapsed)
	fmt.Printf("Output size:      %.2f MB\n", float64(info.Size())/1024/1024)
	fmt.Printf("--------------------------------------------------\n")
}

// generateCSV writes rows of id,code,value,description until limit
// bytes have been produced, returning the actual byte and row counts.
func generateCSV(path string, limit int64) (int64, int) {
	f, err := os.Create(path)
	if err != nil {
		panic(err)
	}
	defer f.Close()

	w := bufio.NewWriterSize(f, 64*1024)
	w.WriteString("id,code,value,description\n")

	rng := rand.New(rand.NewSource(123))
	var bytesWritten int64
	rows := 0
	buf := make([]byte, 0, 1024)

	for bytesWritten < limit {
		rows++
		buf = buf[:0]
		buf = fmt.Appendf(buf, "%d,US-%d,%d,\"Description for item %d with some padding to make it longer\"\n", rows, rng.Intn(1000), rng.Intn(10000), rows)
		n, _ := w.Write(buf)
		bytesWritten += int64(n)
	}
	w.Flush()
	return bytesWritten, rows
}
