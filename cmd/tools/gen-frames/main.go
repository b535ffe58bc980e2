// Command gen-frames generates a synthetic insole frame stream for dev
// mode replay and scanner testing.
package main

import (
	"flag"
	"log"
	"math"
	"math/rand"
	"os"

	"github.com/gaitworks/plantar.report/internal/insole"
)

func main() {
	output := flag.String("o", "fixtures.bin", "output path")
	frames := flag.Int("n", 200, "number of frames")
	corrupt := flag.Float64("corrupt", 0, "fraction of frames with a bad checksum")
	garbage := flag.Int("garbage", 0, "random noise bytes inserted between frames")
	seed := flag.Int64("seed", 1, "random seed")
	flag.Parse()

	rng := rand.New(rand.NewSource(*seed))

	var stream []byte
	for i := 0; i < *frames; i++ {
		var points [insole.PointCount]uint16
		// rolling load pattern: a gait-like pressure wave moving from
		// heel to toe across the frame sequence
		phase := float64(i) / 10.0
		for p := range points {
			wave := math.Sin(phase + float64(p)*0.35)
			points[p] = uint16(500 + 400*wave + rng.Float64()*50)
		}

		side := insole.FootLeft
		if i%2 == 1 {
			side = insole.FootRight
		}

		frame := insole.EncodeFrame(side, points)
		if *corrupt > 0 && rng.Float64() < *corrupt {
			frame[insole.FrameSize-1] ^= byte(1 + rng.Intn(255))
		}
		stream = append(stream, frame[:]...)

		if *garbage > 0 {
			for g := 0; g < rng.Intn(*garbage+1); g++ {
				b := byte(rng.Intn(256))
				if b == insole.HeaderByte {
					b = 0
				}
				stream = append(stream, b)
			}
		}
	}

	if err := os.WriteFile(*output, stream, 0644); err != nil {
		log.Fatalf("failed to write %s: %v", *output, err)
	}
	log.Printf("✓ Created: %s (%d frames, %d bytes)", *output, *frames, len(stream))
}
