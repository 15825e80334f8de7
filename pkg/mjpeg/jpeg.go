package mjpeg

const (
	markerSOF = 0xC0 // Start Of Frame (Baseline Sequential)
	markerSOI = 0xD8 // Start Of Image
	markerEOI = 0xD9 // End Of Image
	markerSOS = 0xDA // Start Of Scan
	markerDQT = 0xDB // Define Quantization Table
	markerDHT = 0xC4 // Define Huffman Table
)

// IsJPEG checks the SOI marker
func IsJPEG(b []byte) bool {
	return len(b) >= 4 && b[0] == 0xFF && b[1] == markerSOI && b[2] == 0xFF
}

// IsComplete checks the EOI marker, trailing zero padding is allowed
func IsComplete(b []byte) bool {
	i := len(b)
	for i > 0 && b[i-1] == 0 {
		i--
	}
	return i >= 4 && b[i-2] == 0xFF && b[i-1] == markerEOI
}
