package controller

import (
	"context"
	"encoding/json"
	"net"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zeu5/pacman-adapter/agents"
	"github.com/zeu5/pacman-adapter/analysis"
	"github.com/zeu5/pacman-adapter/core"
	"github.com/zeu5/pacman-adapter/display"
	"github.com/zeu5/pacman-adapter/engine"
	"github.com/zeu5/pacman-adapter/policystore"
	"github.com/zeu5/pacman-adapter/protocol"
	"github.com/zeu5/pacman-adapter/transport"
)

func stateMessage(t *testing.T, id int, terminal bool) *protocol.Message {
	l, err := engine.GetLayout("classic", 1)
	require.NoError(t, err)
	s := engine.NewState(l, 1, []int{2})
	bs, err := json.Marshal(&engine.Observation{AgentID: id, State: s, Legal: s.Legal(id)})
	require.NoError(t, err)
	return protocol.NewStateMessage(id, bs, terminal, s.Score)
}

func TestSessionRequiresRegistration(t *testing.T) {
	s := NewSession(1)
	reply := s.Handle(protocol.NewInitMessage(1))
	require.Equal(t, protocol.KindError, reply.Kind)

	reply = s.Handle(protocol.NewRegisterMessage(1, "pacman", "psychic"))
	require.Equal(t, protocol.KindError, reply.Kind)

	reply = s.Handle(protocol.NewRegisterMessage(1, "referee", "random"))
	require.Equal(t, protocol.KindError, reply.Kind)

	reply = s.Handle(protocol.NewRegisterMessage(1, "pacman", "random"))
	require.Equal(t, protocol.KindAck, reply.Kind)
	reply = s.Handle(protocol.NewRegisterMessage(1, "pacman", "random"))
	require.Equal(t, protocol.KindError, reply.Kind)

	reply = s.Handle(protocol.NewInitMessage(7))
	require.Equal(t, protocol.KindError, reply.Kind, "the connection belongs to agent 1")
}

func TestSessionLearningAgent(t *testing.T) {
	s := NewSession(42)
	require.Equal(t, protocol.KindAck, s.Handle(protocol.NewRegisterMessage(2, "ghost", "ai")).Kind)
	require.Equal(t, protocol.KindAck, s.Handle(protocol.NewInitMessage(2)).Kind)
	require.Equal(t, protocol.KindAck, s.Handle(protocol.NewStartEpisodeMessage(2, 20, 11)).Kind)

	msg := stateMessage(t, 2, false)
	reply := s.Handle(msg)
	require.Equal(t, protocol.KindAction, reply.Kind)
	action := protocol.ActionPayload{}
	require.NoError(t, reply.Decode(&action))
	obs := engine.Observation{}
	p := protocol.StatePayload{}
	require.NoError(t, msg.Decode(&p))
	require.NoError(t, json.Unmarshal(p.State, &obs))
	require.Contains(t, obs.Legal, engine.Direction(action.Action))

	require.Equal(t, protocol.KindAck, s.Handle(stateMessage(t, 2, true)).Kind)

	reply = s.Handle(protocol.NewRequestBehaviorCountMessage(2))
	require.Equal(t, protocol.KindBehaviorCount, reply.Kind)
	count := protocol.BehaviorCountPayload{}
	require.NoError(t, reply.Decode(&count))
	total := 0
	for _, v := range count.Count {
		total += v
	}
	require.Equal(t, 1, total)

	reply = s.Handle(protocol.NewRequestPolicyMessage(2))
	require.Equal(t, protocol.KindPolicy, reply.Kind)
	policy := protocol.PolicyPayload{}
	require.NoError(t, reply.Decode(&policy))
	require.Equal(t, protocol.KindAck, s.Handle(protocol.NewPolicyMessage(2, policy.Policy)).Kind)

	require.Equal(t, protocol.KindAck, s.Handle(protocol.NewTestModeMessage(2)).Kind)
	require.Equal(t, protocol.KindError, s.Handle(protocol.NewPolicyMessage(2, json.RawMessage(`[1]`))).Kind)
}

func TestNonLearningAgentHasNoPolicy(t *testing.T) {
	s := NewSession(1)
	require.Equal(t, protocol.KindAck, s.Handle(protocol.NewRegisterMessage(1, "pacman", "eater")).Kind)
	require.Equal(t, protocol.KindError, s.Handle(protocol.NewRequestPolicyMessage(1)).Kind)
	reply := s.Handle(protocol.NewRequestBehaviorCountMessage(1))
	require.Equal(t, protocol.KindBehaviorCount, reply.Kind)
}

func TestNewAgent(t *testing.T) {
	for _, role := range []agents.Role{agents.RoleController, agents.RoleAdversary} {
		for _, class := range agents.ClassNames(role) {
			_, err := NewAgent(1, role, class, 1)
			require.NoError(t, err, "%s %s", role, class)
		}
	}
	_, err := NewAgent(2, agents.RoleAdversary, "eater", 1)
	require.ErrorIs(t, err, agents.ErrUnknownClass)
}

func TestEaterHeadsForFood(t *testing.T) {
	l, err := engine.GetLayout("classic", 1)
	require.NoError(t, err)
	s := engine.NewState(l, 1, []int{2})
	a := newEaterAgent(1, 3)
	pos, _ := s.Position(1)
	food, ok := nearest(pos, s.Food)
	require.True(t, ok)

	d := a.Act(&engine.Observation{AgentID: 1, State: s, Legal: s.Legal(1)})
	require.Less(t, pos.Move(d).Distance(food), pos.Distance(food))
}

func pipeDial(seed uint64) core.DialFunc {
	return func(int) (protocol.Channel, error) {
		local, far := transport.Pipe()
		go NewSession(seed).Serve(far)
		return local, nil
	}
}

func TestFullRunOverPipes(t *testing.T) {
	team, err := core.BuildTeam(&core.TeamConfig{ControllerClass: "ai", AdversaryClass: "ai", Adversaries: 2, Noise: 1}, pipeDial(5))
	require.NoError(t, err)
	defer team.Close()

	path := filepath.Join(t.TempDir(), "policies.db")
	store, err := policystore.Open(path)
	require.NoError(t, err)
	layout, err := engine.GetLayout("classic", 2)
	require.NoError(t, err)

	results := analysis.NewResults()
	orch := core.NewOrchestrator(team, store, &engine.GridEngine{MaxTurns: 40}, layout, display.NullDisplay{}, results)
	orch.AddAnalyzer("outcome", analysis.NewOutcomeAnalyzer())
	_, err = orch.Run(context.Background(), &core.RunConfig{LearnEpisodes: 3, TestEpisodes: 2})
	require.NoError(t, err)

	res := results.Finalize()
	require.Len(t, res.LearnScores, 3)
	require.Len(t, res.TestScores, 2)
	require.Len(t, res.BehaviorCount, 3)
	for id, series := range res.BehaviorCount {
		total := 0
		for _, values := range series {
			total += len(values)
		}
		require.NotZero(t, total, "agent %d reported behaviors", id)
	}

	again, err := policystore.Open(path)
	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 3}, again.IDs())

	// a second run starts from the stored policies
	team2, err := core.BuildTeam(&core.TeamConfig{ControllerClass: "ai", AdversaryClass: "random", Adversaries: 2}, pipeDial(6))
	require.NoError(t, err)
	defer team2.Close()
	orch = core.NewOrchestrator(team2, again, &engine.GridEngine{MaxTurns: 40}, layout, display.NullDisplay{}, analysis.NewResults())
	_, err = orch.Run(context.Background(), &core.RunConfig{LearnEpisodes: 1})
	require.NoError(t, err)
}

func TestServerOverWebsocket(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv := NewServer(9)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, l) }()

	conn, err := transport.Dial(context.Background(), l.Addr().String(), 0)
	require.NoError(t, err)
	p := agents.NewProxy(1, conn)
	require.NoError(t, p.Register(agents.RoleController, "ai"))
	require.NoError(t, p.Init())
	require.NoError(t, p.StartEpisode(20, 11))
	blob, err := p.RequestPolicy()
	require.NoError(t, err)
	require.NotEmpty(t, blob)

	err = p.LoadPolicy(json.RawMessage(`"not a table"`))
	require.ErrorIs(t, err, protocol.ErrRemote)

	require.NoError(t, p.Close())
	cancel()
	require.NoError(t, <-done)
}
