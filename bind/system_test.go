package bind_test

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chabad360/oscbind/bind"
	"github.com/chabad360/oscbind/datapath"
	"github.com/chabad360/oscbind/osc"
	"github.com/chabad360/oscbind/scene"
)

func loadScene(t *testing.T) *scene.Scene {
	t.Helper()
	s, err := scene.LoadFile("../scene/testdata/cube.json", scene.Options{})
	require.NoError(t, err)
	return s
}

// freePort returns a UDP port that was free a moment ago.
func freePort(t *testing.T) int {
	t.Helper()
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer pc.Close()
	return pc.LocalAddr().(*net.UDPAddr).Port
}

func newSystem(t *testing.T, sc *scene.Scene, mappings bind.MappingSource, tweak func(*bind.Config)) *bind.System {
	t.Helper()
	cfg := bind.DefaultConfig()
	cfg.Host = "127.0.0.1"
	cfg.Port = freePort(t)
	if tweak != nil {
		tweak(&cfg)
	}

	sys, err := bind.New(cfg, bind.Host{
		Graph:     sc,
		Animator:  sc,
		Playback:  sc,
		Display:   sc,
		Scheduler: sc,
		Mappings:  mappings,
	})
	require.NoError(t, err)
	t.Cleanup(sys.Stop)
	return sys
}

func get(t *testing.T, sc *scene.Scene, path string) any {
	t.Helper()
	tgt, err := datapath.Resolve(sc, path)
	require.NoError(t, err)
	v, err := tgt.Get()
	require.NoError(t, err)
	return v
}

func set(t *testing.T, sc *scene.Scene, path string, v any) {
	t.Helper()
	tgt, err := datapath.Resolve(sc, path)
	require.NoError(t, err)
	require.NoError(t, tgt.Set(v))
}

func TestEndToEnd(t *testing.T) {
	sc := loadScene(t)
	sys := newSystem(t, sc, bind.MappingList{
		{Address: "/fader1", Datapath: "obj.someFloatAttr", Enabled: true},
	}, nil)

	require.NoError(t, sys.Start())
	require.True(t, sys.Running())
	require.NotNil(t, sys.Addr())
	assert.Equal(t, 1, sc.Timers())

	client, err := osc.Dial(sys.Addr().String())
	require.NoError(t, err)
	defer client.Close()
	require.NoError(t, client.Send(osc.NewMessage("/fader1", float32(0.75))))

	require.Eventually(t, func() bool {
		sys.Tick()
		return get(t, sc, "obj.someFloatAttr") == 0.75
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "0.7500", sc.Status())
	assert.Equal(t, "0.7500", sys.Status())

	sys.Stop()
	assert.False(t, sys.Running())
	assert.Nil(t, sys.Addr())
	assert.Equal(t, 0, sys.Store().Len())
	assert.Equal(t, "", sc.Status())
	assert.Equal(t, 0, sc.Timers())

	// Nothing held across a restart.
	set(t, sc, "obj.someFloatAttr", 0.0)
	require.NoError(t, sys.Start())
	sys.Tick()
	assert.Equal(t, 0.0, get(t, sc, "obj.someFloatAttr"))
	assert.Equal(t, "", sc.Status())
}

func TestStartBindFailure(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer pc.Close()

	sc := loadScene(t)
	sys := newSystem(t, sc, bind.MappingList{}, func(c *bind.Config) {
		c.Port = pc.LocalAddr().(*net.UDPAddr).Port
	})

	assert.Error(t, sys.Start())
	assert.False(t, sys.Running())
	assert.Equal(t, 0, sc.Timers())
}

func TestStartStopIdempotent(t *testing.T) {
	sc := loadScene(t)
	sys := newSystem(t, sc, bind.MappingList{}, nil)

	sys.Stop()
	require.NoError(t, sys.Start())
	require.NoError(t, sys.Start())
	assert.Equal(t, 1, sc.Timers())

	sys.Stop()
	sys.Stop()
	assert.Equal(t, 0, sc.Timers())
	assert.False(t, sys.Running())
}

func TestReconfigure(t *testing.T) {
	sc := loadScene(t)
	sys := newSystem(t, sc, bind.MappingList{}, nil)

	// Stopped: only the config changes.
	port := freePort(t)
	require.NoError(t, sys.Reconfigure("127.0.0.1", port))
	assert.False(t, sys.Running())

	require.NoError(t, sys.Start())
	assert.Equal(t, port, sys.Addr().(*net.UDPAddr).Port)

	next := freePort(t)
	require.NoError(t, sys.Reconfigure("127.0.0.1", next))
	assert.True(t, sys.Running())
	assert.Equal(t, next, sys.Addr().(*net.UDPAddr).Port)
	assert.Equal(t, 1, sc.Timers())

	assert.Error(t, sys.Reconfigure("127.0.0.1", 0))
	assert.Equal(t, next, sys.Addr().(*net.UDPAddr).Port)
}

func TestTickWhenStopped(t *testing.T) {
	sc := loadScene(t)
	sys := newSystem(t, sc, bind.MappingList{}, func(c *bind.Config) {
		c.Interval = 20 * time.Millisecond
	})

	sc.SetStatus("stale")
	assert.Equal(t, 20*time.Millisecond, sys.Tick())
	assert.Equal(t, "", sc.Status())
}

func TestApplyContinuesPastFailures(t *testing.T) {
	sc := loadScene(t)
	sys := newSystem(t, sc, bind.MappingList{
		{Address: "/a", Datapath: "nope.attr", Enabled: true},
		{Address: "/a", Datapath: "obj", Enabled: true},
		{Address: "/a", Datapath: `data.objects["Cube"].location[2]`, Enabled: true},
		{Address: "/a", Datapath: "obj.label", Enabled: true},
		{Address: "/a", Datapath: `data.objects["Cube"].location[9]`, Enabled: true},
		{Address: "/a", Datapath: `data.objects["Cube"].display_type`, Enabled: true},
		{Address: "/a", Datapath: "obj.flags[1]", Enabled: true},
	}, nil)
	require.NoError(t, sys.Start())

	sys.Store().Publish("/a", 2.5)
	assert.NotPanics(t, func() { sys.Tick() })

	assert.Equal(t, 2.5, get(t, sc, `data.objects["Cube"].location[2]`))
	assert.Equal(t, 2, get(t, sc, `data.objects["Cube"].display_type`))
	assert.Equal(t, true, get(t, sc, "obj.flags[1]"))
	assert.Equal(t, "hello", get(t, sc, "obj.label"))

	// A path that starts resolving later is picked up on the next tick.
	set(t, sc, `data.objects["Cube"].location[2]`, 0.0)
	sys.Tick()
	assert.Equal(t, 2.5, get(t, sc, `data.objects["Cube"].location[2]`))
}

func TestDisabledAndUnnormalizedMappings(t *testing.T) {
	sc := loadScene(t)
	sys := newSystem(t, sc, bind.MappingList{
		{Address: "fader", Datapath: `data.objects["Light.001"].energy`, Enabled: true},
		{Address: "/fader", Datapath: `data.objects["Cube"].pass_index`, Enabled: false},
		{Address: "", Datapath: "obj.someFloatAttr", Enabled: true},
	}, nil)
	require.NoError(t, sys.Start())

	sys.Store().Publish("/fader", 3)
	sys.Store().Publish("", 9)
	sys.Tick()

	assert.Equal(t, 3.0, get(t, sc, `data.objects["Light.001"].energy`))
	assert.Equal(t, 0, get(t, sc, `data.objects["Cube"].pass_index`))
	assert.Equal(t, 0.0, get(t, sc, "obj.someFloatAttr"))
}

func TestHoldLast(t *testing.T) {
	tests := []struct {
		name     string
		holdLast bool
		want     float64
	}{
		{"on", true, 0.25},
		{"off", false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := loadScene(t)
			sys := newSystem(t, sc, bind.MappingList{
				{Address: "/x", Datapath: "obj.someFloatAttr", Enabled: true},
			}, func(c *bind.Config) { c.HoldLast = tt.holdLast })
			require.NoError(t, sys.Start())

			sys.Store().Publish("/x", 0.25)
			sys.Tick()
			require.Equal(t, 0.25, get(t, sc, "obj.someFloatAttr"))

			set(t, sc, "obj.someFloatAttr", 0.0)
			sys.Tick()
			assert.Equal(t, tt.want, get(t, sc, "obj.someFloatAttr"))
			assert.Equal(t, "0.2500", sc.Status())
		})
	}
}

func TestKeyframeOncePerFrame(t *testing.T) {
	sc := loadScene(t)
	sys := newSystem(t, sc, bind.MappingList{
		{Address: "/x", Datapath: "obj.someFloatAttr", Enabled: true},
		{Address: "/y", Datapath: `data.objects["Cube"].location[1]`, Enabled: true},
	}, nil)
	require.NoError(t, sys.Start())
	require.NoError(t, sys.SetRecording(true))
	require.True(t, sc.Playing())

	sys.Store().Publish("/x", 0.5)
	sys.Store().Publish("/y", 1.5)
	sys.Tick()
	sys.Tick()
	assert.Equal(t, 2, sc.KeyframeCount())

	objRoot, err := sc.Root("obj")
	require.NoError(t, err)
	c, ok := sc.Curve(objRoot, "someFloatAttr", 0)
	require.True(t, ok)
	assert.True(t, c.Muted)
	assert.Equal(t, []scene.Keyframe{{Frame: 0, Value: 0.5}}, c.Keys)

	tgt, err := datapath.Resolve(sc, `data.objects["Cube"].location[1]`)
	require.NoError(t, err)
	c, ok = sc.Curve(tgt.Owner, "location", 1)
	require.True(t, ok)
	assert.True(t, c.Muted)

	sc.SetFrame(1)
	sys.Store().Publish("/x", 0.75)
	sys.Tick()
	assert.Equal(t, 4, sc.KeyframeCount())
	c, _ = sc.Curve(objRoot, "someFloatAttr", 0)
	assert.Equal(t, []scene.Keyframe{{Frame: 0, Value: 0.5}, {Frame: 1, Value: 0.75}}, c.Keys)
}

func TestNoKeyframesWhileNotPlaying(t *testing.T) {
	sc := loadScene(t)
	sys := newSystem(t, sc, bind.MappingList{
		{Address: "/x", Datapath: "obj.someFloatAttr", Enabled: true},
	}, nil)
	require.NoError(t, sys.Start())
	require.NoError(t, sys.SetRecording(true))
	require.NoError(t, sc.SetPlaying(false))

	sys.Store().Publish("/x", 0.5)
	sys.Tick()
	assert.Equal(t, 0, sc.KeyframeCount())
	assert.Equal(t, 0.5, get(t, sc, "obj.someFloatAttr"))
}

func TestRecordingToggle(t *testing.T) {
	sc := loadScene(t)
	sys := newSystem(t, sc, bind.MappingList{
		{Address: "/x", Datapath: "obj.someFloatAttr", Enabled: true},
		{Address: "/y", Datapath: `data.objects["Cube"].location[2]`, Enabled: false},
		{Address: "/z", Datapath: "gone.attr", Enabled: true},
	}, nil)

	objRoot, _ := sc.Root("obj")
	cubeLoc, err := datapath.Resolve(sc, `data.objects["Cube"].location[2]`)
	require.NoError(t, err)
	require.NoError(t, sc.InsertKeyframe(objRoot, "someFloatAttr", -1, 0))
	require.NoError(t, sc.InsertKeyframe(cubeLoc.Owner, "location", 2, 0))

	muted := func() (bool, bool) {
		a, _ := sc.Curve(objRoot, "someFloatAttr", 0)
		b, _ := sc.Curve(cubeLoc.Owner, "location", 2)
		return a.Muted, b.Muted
	}

	assert.ErrorIs(t, sys.SetRecording(true), bind.ErrNotRunning)
	assert.False(t, sys.Recording())

	require.NoError(t, sys.Start())
	require.NoError(t, sys.SetRecording(true))
	assert.True(t, sys.Recording())
	assert.True(t, sc.Playing())
	a, b := muted()
	assert.True(t, a)
	assert.True(t, b, "disabled mappings are muted too")

	require.NoError(t, sys.SetRecording(false))
	assert.False(t, sys.Recording())
	assert.False(t, sc.Playing())
	a, b = muted()
	assert.False(t, a)
	assert.False(t, b)

	require.NoError(t, sys.SetRecording(true))
	sys.Stop()
	assert.False(t, sys.Recording())
	assert.False(t, sc.Playing())
	a, b = muted()
	assert.False(t, a)
	assert.False(t, b)
}

// Stop clears the frame memo, so the same frame is keyed again after a restart.
func TestStopClearsFrameMemo(t *testing.T) {
	sc := loadScene(t)
	sys := newSystem(t, sc, bind.MappingList{
		{Address: "/x", Datapath: "obj.someFloatAttr", Enabled: true},
	}, nil)

	objRoot, _ := sc.Root("obj")
	for _, v := range []float64{0.1, 0.2} {
		require.NoError(t, sys.Start())
		require.NoError(t, sys.SetRecording(true))
		sys.Store().Publish("/x", v)
		sys.Tick()
		sys.Stop()

		c, ok := sc.Curve(objRoot, "someFloatAttr", 0)
		require.True(t, ok)
		assert.Equal(t, []scene.Keyframe{{Frame: 0, Value: v}}, c.Keys)
	}
}

func TestMiddleware(t *testing.T) {
	sc := loadScene(t)
	sys := newSystem(t, sc, bind.MappingList{
		{Address: "/x", Datapath: "obj.someFloatAttr", Enabled: true},
	}, func(c *bind.Config) {
		c.Middleware = func(next osc.Publisher) osc.Publisher {
			return osc.PublisherFunc(func(addr string, v float64) {
				if addr != "/drop" {
					next.Publish(addr, v)
				}
			})
		}
	})
	require.NoError(t, sys.Start())

	client, err := osc.Dial(sys.Addr().String())
	require.NoError(t, err)
	defer client.Close()
	require.NoError(t, client.Send(osc.NewBundle(
		osc.NewMessage("/drop", float32(1)),
		osc.NewMessage("/x", float32(0.5)),
	)))

	require.Eventually(t, func() bool {
		sys.Tick()
		return get(t, sc, "obj.someFloatAttr") == 0.5
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, sys.Store().Len())
}

func TestNewRejectsIncompleteHost(t *testing.T) {
	sc := loadScene(t)
	_, err := bind.New(bind.DefaultConfig(), bind.Host{Graph: sc})
	assert.Error(t, err)

	cfg := bind.DefaultConfig()
	cfg.Interval = 0
	_, err = bind.New(cfg, bind.Host{})
	assert.Error(t, err)
}
