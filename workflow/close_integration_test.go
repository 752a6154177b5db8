package workflow_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alkholigroup2020/stock-management-system-sub004/config"
	"github.com/alkholigroup2020/stock-management-system-sub004/models"
	"github.com/alkholigroup2020/stock-management-system-sub004/utils"
	"github.com/alkholigroup2020/stock-management-system-sub004/workflow"
	"github.com/shopspring/decimal"
)

// Full close path against real MySQL + Redis: post movements across two
// locations, reconcile, pass the readiness barrier, request and approve the
// close, and verify the period flipped atomically with snapshots captured and
// balances rolled into the successor.
func TestPeriodClose_EndToEnd(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := context.Background()

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "stockledger_test")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	models.MigrateTable()

	ctx = utils.SetUserIdInContext(ctx, 1)
	ctx = utils.SetUserNameInContext(ctx, "Test")

	kitchen, err := models.CreateLocation(ctx, &models.NewLocation{Name: "Central Kitchen", Code: "CK"})
	if err != nil {
		t.Fatalf("create location: %v", err)
	}
	camp, err := models.CreateLocation(ctx, &models.NewLocation{Name: "Camp A", Code: "CAMP-A"})
	if err != nil {
		t.Fatalf("create location: %v", err)
	}
	rice, err := models.CreateItem(ctx, &models.NewItem{Name: "Rice 5kg", Sku: "RICE-5", Unit: "bag", PurchasePrice: mustDec("5.00")})
	if err != nil {
		t.Fatalf("create item: %v", err)
	}

	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	period, err := workflow.CreatePeriod(ctx, &workflow.NewPeriod{
		Name:            "2026-08",
		StartDate:       start,
		EndDate:         start.AddDate(0, 1, 0).AddDate(0, 0, -1),
		OpenImmediately: true,
	})
	if err != nil {
		t.Fatalf("open period: %v", err)
	}

	// Kitchen receives 10 bags at 5.00, sends 4 to the camp; camp eats 1.
	unitPrice := mustDec("5.00")
	if _, err := workflow.PostReceipt(ctx, &workflow.NewReceipt{
		LocationId: kitchen.ID, ItemId: rice.ID, Qty: mustDec("10"), UnitPrice: &unitPrice, DocRef: "GRN-1",
	}); err != nil {
		t.Fatalf("post receipt: %v", err)
	}
	if _, _, err := workflow.PostTransfer(ctx, &workflow.NewTransfer{
		FromLocationId: kitchen.ID, ToLocationId: camp.ID, ItemId: rice.ID, Qty: mustDec("4"), DocRef: "TRF-1",
	}); err != nil {
		t.Fatalf("post transfer: %v", err)
	}
	if _, err := workflow.PostConsumption(ctx, &workflow.NewConsumption{
		LocationId: camp.ID, ItemId: rice.ID, Qty: mustDec("1"), DocRef: "ISS-1",
	}); err != nil {
		t.Fatalf("post consumption: %v", err)
	}

	// A replayed request id is rejected without touching the ledger.
	replay := &workflow.NewReceipt{
		LocationId: kitchen.ID, ItemId: rice.ID, Qty: mustDec("99"), UnitPrice: &unitPrice,
		DocRef: "GRN-DUP", RequestId: "req-grn-dup",
	}
	if _, err := workflow.PostReceipt(ctx, replay); err != nil {
		t.Fatalf("post receipt with request id: %v", err)
	}
	if _, err := workflow.PostReceipt(ctx, replay); !errors.Is(err, workflow.ErrDuplicateRequest) {
		t.Fatalf("replayed receipt err = %v, want ErrDuplicateRequest", err)
	}
	if _, err := workflow.PostConsumption(ctx, &workflow.NewConsumption{
		LocationId: kitchen.ID, ItemId: rice.ID, Qty: mustDec("99"), DocRef: "ISS-DUP",
	}); err != nil {
		t.Fatalf("undo replay receipt: %v", err)
	}

	// Opposing transfers lock both position rows in location order before
	// mutating, so neither direction can deadlock the other. Quantities are
	// symmetric; positions end where they started.
	var transferWg sync.WaitGroup
	transferErrs := make(chan error, 6)
	transferWg.Add(2)
	go func() {
		defer transferWg.Done()
		for i := 0; i < 3; i++ {
			if _, _, err := workflow.PostTransfer(ctx, &workflow.NewTransfer{
				FromLocationId: kitchen.ID, ToLocationId: camp.ID, ItemId: rice.ID,
				Qty: mustDec("1"), DocRef: fmt.Sprintf("TRF-KC-%d", i),
			}); err != nil {
				transferErrs <- err
			}
		}
	}()
	go func() {
		defer transferWg.Done()
		for i := 0; i < 3; i++ {
			if _, _, err := workflow.PostTransfer(ctx, &workflow.NewTransfer{
				FromLocationId: camp.ID, ToLocationId: kitchen.ID, ItemId: rice.ID,
				Qty: mustDec("1"), DocRef: fmt.Sprintf("TRF-CK-%d", i),
			}); err != nil {
				transferErrs <- err
			}
		}
	}()
	transferWg.Wait()
	close(transferErrs)
	for err := range transferErrs {
		t.Fatalf("opposing transfer failed: %v", err)
	}

	kitchenPos, err := models.GetStockPosition(ctx, kitchen.ID, rice.ID)
	if err != nil {
		t.Fatalf("get position: %v", err)
	}
	if !kitchenPos.OnHand.Equal(mustDec("6")) || !kitchenPos.Wac.Equal(mustDec("5")) {
		t.Fatalf("kitchen position = (%s, %s), want (6, 5)", kitchenPos.OnHand, kitchenPos.Wac)
	}

	// Reconcile both locations with closing values matching the ledger.
	closingKitchen := mustDec("30") // 6 * 5.00
	if _, err := workflow.SaveReconciliationAdjustments(ctx, period.ID, kitchen.ID, &models.ReconciliationAdjustments{
		ClosingValue: &closingKitchen, ActivityCount: mustDec("10"),
	}); err != nil {
		t.Fatalf("save kitchen reconciliation: %v", err)
	}
	closingCamp := mustDec("15") // 3 * 5.00
	camVals, err := workflow.SaveReconciliationAdjustments(ctx, period.ID, camp.ID, &models.ReconciliationAdjustments{
		ClosingValue: &closingCamp, ActivityCount: mustDec("1"),
	})
	if err != nil {
		t.Fatalf("save camp reconciliation: %v", err)
	}
	// transfersIn 20 - closing 15 = consumption 5
	if !camVals.Consumption.Equal(mustDec("5")) {
		t.Fatalf("camp consumption = %s, want 5", camVals.Consumption)
	}

	// The barrier rejects a close while a location is still NotReady.
	if _, err := workflow.RequestPeriodClose(ctx, period.ID); err == nil {
		t.Fatal("close request accepted with locations not ready")
	}

	if _, err := workflow.MarkLocationReady(ctx, period.ID, kitchen.ID); err != nil {
		t.Fatalf("mark kitchen ready: %v", err)
	}
	if _, err := workflow.MarkLocationReady(ctx, period.ID, camp.ID); err != nil {
		t.Fatalf("mark camp ready: %v", err)
	}

	approval, err := workflow.RequestPeriodClose(ctx, period.ID)
	if err != nil {
		t.Fatalf("request close: %v", err)
	}

	// PendingClose freezes posting everywhere.
	if _, err := workflow.PostReceipt(ctx, &workflow.NewReceipt{
		LocationId: kitchen.ID, ItemId: rice.ID, Qty: mustDec("1"), UnitPrice: &unitPrice, DocRef: "GRN-LATE",
	}); err == nil {
		t.Fatal("posting accepted while period is PendingClose")
	}

	// A duplicate close request reports the pending approval.
	var alreadyExists *models.ApprovalAlreadyExistsError
	if _, err := workflow.RequestPeriodClose(ctx, period.ID); !errors.As(err, &alreadyExists) {
		t.Fatalf("duplicate close request err = %v, want ApprovalAlreadyExistsError", err)
	}
	if alreadyExists.ApprovalId != approval.ID {
		t.Fatalf("duplicate request reported approval %d, want %d", alreadyExists.ApprovalId, approval.ID)
	}

	// Rejection reopens the period and keeps every location Ready.
	if _, err := workflow.RejectPeriodClose(ctx, approval.ID, "recount the camp"); err != nil {
		t.Fatalf("reject close: %v", err)
	}
	reopened, err := models.GetPeriod(ctx, period.ID)
	if err != nil {
		t.Fatalf("reload period after reject: %v", err)
	}
	if reopened.Status != models.PeriodStatusOpen {
		t.Fatalf("period status after reject = %s, want Open", reopened.Status)
	}
	for _, locationId := range []int{kitchen.ID, camp.ID} {
		state, err := models.GetLocationPeriodState(config.GetDB().WithContext(ctx), period.ID, locationId)
		if err != nil {
			t.Fatalf("state after reject: %v", err)
		}
		if state.Readiness != models.LocationReadinessReady {
			t.Fatalf("location %d readiness after reject = %s, want Ready", locationId, state.Readiness)
		}
	}

	approval, err = workflow.RequestPeriodClose(ctx, period.ID)
	if err != nil {
		t.Fatalf("re-request close after reject: %v", err)
	}

	_, successorFromClose, err := workflow.ApprovePeriodClose(ctx, approval.ID, "looks right")
	if err != nil {
		t.Fatalf("approve close: %v", err)
	}
	if successorFromClose == nil || successorFromClose.Status != models.PeriodStatusOpen {
		t.Fatalf("approve returned successor %+v, want an Open period", successorFromClose)
	}

	closed, err := models.GetPeriod(ctx, period.ID)
	if err != nil {
		t.Fatalf("reload period: %v", err)
	}
	if closed.Status != models.PeriodStatusClosed {
		t.Fatalf("period status = %s, want Closed", closed.Status)
	}
	if closed.ClosedAt == nil || closed.ActiveGuard != nil {
		t.Fatalf("closed period bookkeeping wrong: closed_at=%v guard=%v", closed.ClosedAt, closed.ActiveGuard)
	}

	// Successor is open and carries the rolled-forward balances as its opening.
	successor, err := models.GetActivePeriod(ctx)
	if err != nil {
		t.Fatalf("active period after close: %v", err)
	}
	if successor.ID == period.ID || successor.Status != models.PeriodStatusOpen {
		t.Fatalf("successor = %+v", successor)
	}
	if successor.ID != successorFromClose.ID {
		t.Fatalf("active period %d != successor returned by approve %d", successor.ID, successorFromClose.ID)
	}

	db := config.GetDB()
	state, err := models.GetLocationPeriodState(db.WithContext(ctx), successor.ID, kitchen.ID)
	if err != nil {
		t.Fatalf("successor state: %v", err)
	}
	opening, err := state.GetOpeningSnapshot()
	if err != nil || opening == nil {
		t.Fatalf("successor opening snapshot: %+v, %v", opening, err)
	}
	if !opening.TotalValue.Equal(mustDec("30")) {
		t.Fatalf("successor opening value = %s, want 30", opening.TotalValue)
	}

	// Closing snapshot on the closed period folds the reconciliation in.
	closedState, err := models.GetLocationPeriodState(db.WithContext(ctx), period.ID, camp.ID)
	if err != nil {
		t.Fatalf("closed state: %v", err)
	}
	closingSnap, err := closedState.GetClosingSnapshot()
	if err != nil || closingSnap == nil {
		t.Fatalf("closing snapshot: %+v, %v", closingSnap, err)
	}
	if closingSnap.Reconciliation == nil || !closingSnap.Reconciliation.Consumption.Equal(mustDec("5")) {
		t.Fatalf("closing snapshot reconciliation = %+v", closingSnap.Reconciliation)
	}

	// The ledger kept rolling forward on its own balance: positions untouched.
	campPos, err := models.GetStockPosition(ctx, camp.ID, rice.ID)
	if err != nil {
		t.Fatalf("camp position: %v", err)
	}
	if !campPos.OnHand.Equal(mustDec("3")) {
		t.Fatalf("camp on_hand = %s, want 3", campPos.OnHand)
	}

	// Posting works again in the successor.
	if _, err := workflow.PostReceipt(ctx, &workflow.NewReceipt{
		LocationId: kitchen.ID, ItemId: rice.ID, Qty: mustDec("2"), UnitPrice: &unitPrice, DocRef: "GRN-2",
	}); err != nil {
		t.Fatalf("post receipt in successor: %v", err)
	}
}

func mustDec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func startRedisContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("stockledger-test-redis-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-p", "127.0.0.1:0:6379",
		"redis:7-alpine",
	)
	if err != nil {
		t.Fatalf("start redis container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "6379/tcp")
	if err != nil {
		t.Fatalf("redis docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "redis-cli", "ping")
		if err == nil {
			return name, port
		}
		time.Sleep(250 * time.Millisecond)
	}
	t.Fatalf("redis did not become ready")
	return "", ""
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("stockledger-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=stockledger_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
		"--default-authentication-plugin=mysql_native_password",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent")
		if err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	// Example: "127.0.0.1:49154\n"
	re := regexp.MustCompile(`:(\d+)`)
	m := re.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	cmd := exec.Command("docker", args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}
