package ports

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocateFirstFit(t *testing.T) {
	ranges := DefaultRanges()

	first, err := Allocate(ranges, nil)
	require.NoError(t, err)

	for _, svc := range Services {
		assert.Equal(t, ranges[svc].Min, first.Get(svc), "first project gets the range minimum for %s", svc)
	}
}

func TestAllocateSequential(t *testing.T) {
	ranges := DefaultRanges()

	var existing []Ports
	for i := 0; i < 3; i++ {
		p, err := Allocate(ranges, existing)
		require.NoError(t, err)
		for _, svc := range Services {
			assert.Equal(t, ranges[svc].Min+i, p.Get(svc))
		}
		existing = append(existing, p)
	}
}

func TestAllocatePerServiceUniqueness(t *testing.T) {
	ranges := DefaultRanges()

	var existing []Ports
	for i := 0; i < 20; i++ {
		p, err := Allocate(ranges, existing)
		require.NoError(t, err)
		existing = append(existing, p)
	}

	for _, svc := range Services {
		seen := make(map[int]bool)
		for _, p := range existing {
			port := p.Get(svc)
			assert.False(t, seen[port], "duplicate %s port %d", svc, port)
			assert.GreaterOrEqual(t, port, ranges[svc].Min)
			assert.LessOrEqual(t, port, ranges[svc].Max)
			seen[port] = true
		}
	}
}

func TestAllocateReusesFreedPorts(t *testing.T) {
	ranges := DefaultRanges()

	a, err := Allocate(ranges, nil)
	require.NoError(t, err)
	b, err := Allocate(ranges, []Ports{a})
	require.NoError(t, err)
	c, err := Allocate(ranges, []Ports{a, b})
	require.NoError(t, err)

	// Project b goes away; the next allocation backfills its slots.
	next, err := Allocate(ranges, []Ports{a, c})
	require.NoError(t, err)
	for _, svc := range Services {
		assert.Equal(t, b.Get(svc), next.Get(svc))
	}
}

func TestAllocateDeterministic(t *testing.T) {
	ranges := DefaultRanges()
	existing := []Ports{
		{Webserver: 28181, Flower: 25656, Postgres: 25534, MySQL: 23407, Redis: 26480, SSH: 12423},
		{Webserver: 28180, Flower: 25655, Postgres: 25533, MySQL: 23406, Redis: 26479, SSH: 12422},
	}

	first, err := Allocate(ranges, existing)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := Allocate(ranges, existing)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestAllocateExhaustion(t *testing.T) {
	ranges := Ranges{}
	for _, svc := range Services {
		ranges[svc] = Range{Min: 10000, Max: 10001}
	}

	a, err := Allocate(ranges, nil)
	require.NoError(t, err)
	b, err := Allocate(ranges, []Ports{a})
	require.NoError(t, err)

	_, err = Allocate(ranges, []Ports{a, b})
	require.ErrorIs(t, err, ErrRangeExhausted)

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, Webserver, exhausted.Service, "exhaustion is reported for the first service scanned")
}

func TestAllocateWebserverRangeFull(t *testing.T) {
	ranges := DefaultRanges()
	ranges[Webserver] = Range{Min: 28180, Max: 28181}

	p1, err := Allocate(ranges, nil)
	require.NoError(t, err)
	assert.Equal(t, 28180, p1.Webserver)

	p2, err := Allocate(ranges, []Ports{p1})
	require.NoError(t, err)
	assert.Equal(t, 28181, p2.Webserver)

	_, err = Allocate(ranges, []Ports{p1, p2})
	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, Webserver, exhausted.Service)
}

func TestAllocateAllOrNothing(t *testing.T) {
	// Redis has no room; nothing should be handed out for the services
	// scanned before it either.
	ranges := DefaultRanges()
	ranges[Redis] = Range{Min: 26479, Max: 26479}

	taken, err := Allocate(ranges, nil)
	require.NoError(t, err)

	got, err := Allocate(ranges, []Ports{taken})
	require.ErrorIs(t, err, ErrRangeExhausted)
	assert.Zero(t, got)
}

func TestAllocateMissingRange(t *testing.T) {
	ranges := DefaultRanges()
	delete(ranges, SSH)

	_, err := Allocate(ranges, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ssh")
}

func TestReallocateOnlyNamedServices(t *testing.T) {
	ranges := DefaultRanges()
	current := Ports{Webserver: 28185, Flower: 25660, Postgres: 25538, MySQL: 23411, Redis: 26484, SSH: 12427}

	repaired, err := Reallocate(ranges, current, []Service{Postgres}, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, ranges[Postgres].Min, repaired.Postgres)
	assert.Equal(t, current.Webserver, repaired.Webserver)
	assert.Equal(t, current.Flower, repaired.Flower)
	assert.Equal(t, current.MySQL, repaired.MySQL)
	assert.Equal(t, current.Redis, repaired.Redis)
	assert.Equal(t, current.SSH, repaired.SSH)
}

func TestReallocateAvoidsLivePorts(t *testing.T) {
	ranges := DefaultRanges()
	current := Ports{Webserver: 28180, Flower: 25655, Postgres: 25533, MySQL: 23406, Redis: 26479, SSH: 12422}

	bound := map[int]bool{28180: true, 28181: true, 28182: true}
	repaired, err := Reallocate(ranges, current, []Service{Webserver}, nil, func(port int) bool {
		return bound[port]
	})
	require.NoError(t, err)
	assert.Equal(t, 28183, repaired.Webserver)
}

func TestReallocateSkipsOtherProjects(t *testing.T) {
	ranges := DefaultRanges()
	current := Ports{Webserver: 28180, Flower: 25655, Postgres: 25533, MySQL: 23406, Redis: 26479, SSH: 12422}
	other := Ports{Webserver: 28181, Flower: 25656, Postgres: 25534, MySQL: 23407, Redis: 26480, SSH: 12423}

	repaired, err := Reallocate(ranges, current, []Service{Webserver}, []Ports{other}, nil)
	require.NoError(t, err)
	// 28180 is free again (the project being repaired no longer counts),
	// 28181 belongs to the other project.
	assert.Equal(t, 28180, repaired.Webserver)
}

func TestEnv(t *testing.T) {
	p := Ports{Webserver: 28180, Flower: 25655, Postgres: 25533, MySQL: 23406, Redis: 26479, SSH: 12422}

	env := p.Env("dag-ui")
	assert.Equal(t, "28180", env["WEB_HOST_PORT"])
	assert.Equal(t, "25655", env["FLOWER_HOST_PORT"])
	assert.Equal(t, "25533", env["POSTGRES_HOST_PORT"])
	assert.Equal(t, "23406", env["MYSQL_HOST_PORT"])
	assert.Equal(t, "26479", env["REDIS_HOST_PORT"])
	assert.Equal(t, "12422", env["SSH_PORT"])
	assert.Equal(t, "ABM: dag-ui", env["AIRFLOW__API__INSTANCE_NAME"])

	anon := p.Env("")
	_, ok := anon["AIRFLOW__API__INSTANCE_NAME"]
	assert.False(t, ok)
}

func TestExhaustedErrorUnwrap(t *testing.T) {
	err := &ExhaustedError{Service: Flower, Range: Range{Min: 1, Max: 2}}
	assert.True(t, errors.Is(err, ErrRangeExhausted))
	assert.Contains(t, err.Error(), "flower")
}
