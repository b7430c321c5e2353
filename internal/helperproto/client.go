package helperproto

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Client drives the proc-file endpoint: write the request, then read the
// response from the same handle. Responses are one-shot, so callers must
// not interleave requests from multiple goroutines against one Client.
type Client struct {
	rw io.ReadWriter
}

// NewClient wraps an already-open endpoint (typically an *os.File opened
// on the helper's proc entry).
func NewClient(rw io.ReadWriter) *Client {
	return &Client{rw: rw}
}

func (c *Client) roundTrip(typ MessageType, payload []byte) (MessageType, []byte, error) {
	if err := writeFrame(c.rw, typ, payload); err != nil {
		return 0, nil, err
	}
	return readFrame(c.rw)
}

// Init performs the INIT handshake and returns the helper's protocol
// version.
func (c *Client) Init() (version uint32, err error) {
	_, resp, err := c.roundTrip(Init, nil)
	if err != nil {
		return 0, err
	}
	if len(resp) < 4 {
		return 0, fmt.Errorf("helperproto: short INIT response")
	}
	return binary.LittleEndian.Uint32(resp[0:4]), nil
}

// SetCoreRange requests the helper monitor cores [first, last] and returns
// the confirmed range plus the helper's thread count.
func (c *Client) SetCoreRange(first, last uint32) (confFirst, confLast, threadCount uint32, err error) {
	req := make([]byte, 8)
	binary.LittleEndian.PutUint32(req[0:4], first)
	binary.LittleEndian.PutUint32(req[4:8], last)
	_, resp, err := c.roundTrip(CoreRange, req)
	if err != nil {
		return 0, 0, 0, err
	}
	if len(resp) < 12 {
		return 0, 0, 0, fmt.Errorf("helperproto: short CORE_RANGE response")
	}
	return binary.LittleEndian.Uint32(resp[0:4]),
		binary.LittleEndian.Uint32(resp[4:8]),
		binary.LittleEndian.Uint32(resp[8:12]), nil
}

// SetCoreWeights pushes per-core priority weights and returns them echoed
// back as confirmation.
func (c *Client) SetCoreWeights(weights []uint32) ([]uint32, error) {
	req := make([]byte, 4+4*len(weights))
	binary.LittleEndian.PutUint32(req[0:4], uint32(len(weights)))
	for i, w := range weights {
		binary.LittleEndian.PutUint32(req[4+4*i:8+4*i], w)
	}
	_, resp, err := c.roundTrip(CoreWeight, req)
	if err != nil {
		return nil, err
	}
	if len(resp) < 4 {
		return nil, fmt.Errorf("helperproto: short CORE_WEIGHT response")
	}
	count := binary.LittleEndian.Uint32(resp[0:4])
	if len(resp) < int(4+4*count) {
		return nil, fmt.Errorf("helperproto: truncated CORE_WEIGHT response")
	}
	out := make([]uint32, count)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(resp[4+4*i : 8+4*i])
	}
	return out, nil
}

// SetTuning enables or disables the helper's autonomous tuning loop.
func (c *Client) SetTuning(enable bool) (status byte, err error) {
	req := []byte{0}
	if enable {
		req[0] = 1
	}
	_, resp, err := c.roundTrip(Tuning, req)
	if err != nil {
		return 0, err
	}
	if len(resp) < 1 {
		return 0, fmt.Errorf("helperproto: short TUNING response")
	}
	return resp[0], nil
}

// SetDDRBandwidthTarget pushes the bandwidth target in MB/s and returns the
// helper's confirmed value.
func (c *Client) SetDDRBandwidthTarget(value uint32) (confirmed uint32, err error) {
	req := make([]byte, 4)
	binary.LittleEndian.PutUint32(req, value)
	_, resp, err := c.roundTrip(DDRBWSet, req)
	if err != nil {
		return 0, err
	}
	if len(resp) < 4 {
		return 0, fmt.Errorf("helperproto: short DDRBW_SET response")
	}
	return binary.LittleEndian.Uint32(resp[0:4]), nil
}

// ReadPMU fetches the K programmable-counter values for a core.
func (c *Client) ReadPMU(coreID uint32, k int) ([]uint64, error) {
	req := make([]byte, 4)
	binary.LittleEndian.PutUint32(req, coreID)
	_, resp, err := c.roundTrip(PMURead, req)
	if err != nil {
		return nil, err
	}
	return decodeU64Vector(resp, k, "PMU_READ")
}

// ReadMSR fetches the NrOfMSR raw MSR values the helper tracks for a core.
func (c *Client) ReadMSR(coreID uint32, nrOfMSR int) ([]uint64, error) {
	req := make([]byte, 4)
	binary.LittleEndian.PutUint32(req, coreID)
	_, resp, err := c.roundTrip(MSRRead, req)
	if err != nil {
		return nil, err
	}
	return decodeU64Vector(resp, nrOfMSR, "MSR_READ")
}

func decodeU64Vector(payload []byte, n int, what string) ([]uint64, error) {
	if len(payload) < 8*n {
		return nil, fmt.Errorf("helperproto: short %s response", what)
	}
	out := make([]uint64, n)
	for i := range out {
		out[i] = binary.LittleEndian.Uint64(payload[8*i : 8*i+8])
	}
	return out, nil
}
