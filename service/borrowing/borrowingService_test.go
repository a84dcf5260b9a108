package borrowingsvc_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"libraryrental/model"
	borrowingrepo "libraryrental/repository/borrowing"
	paymentrepo "libraryrental/repository/payment"
	striperepo "libraryrental/repository/stripe"
	bs "libraryrental/service/borrowing"
	"libraryrental/util/clock"

	"github.com/shopspring/decimal"
)

var day0 = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

func day(n int) time.Time { return day0.AddDate(0, 0, n) }

// ----- in-memory store implementing both repo interfaces -----

type fakeStore struct {
	books      map[int64]*model.Book
	borrowings map[int64]*model.Borrowing
	payments   map[int64]*model.Payment
	nextBID    int64
	nextPID    int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		books:      map[int64]*model.Book{},
		borrowings: map[int64]*model.Borrowing{},
		payments:   map[int64]*model.Payment{},
	}
}

func (f *fakeStore) addBook(id int64, title string, inventory int64, dailyFee string) {
	f.books[id] = &model.Book{
		ID: id, Title: title, Author: "someone", Cover: model.CoverHard,
		Inventory: inventory, DailyFee: decimal.RequireFromString(dailyFee),
	}
}

func (f *fakeStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (f *fakeStore) GetBook(ctx context.Context, bookID int64) (*model.Book, error) {
	b, ok := f.books[bookID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *b
	return &cp, nil
}

func (f *fakeStore) DecrementInventory(ctx context.Context, bookID int64) (bool, error) {
	b, ok := f.books[bookID]
	if !ok || b.Inventory == 0 {
		return false, nil
	}
	b.Inventory--
	return true, nil
}

func (f *fakeStore) IncrementInventory(ctx context.Context, bookID int64) error {
	b, ok := f.books[bookID]
	if !ok {
		return sql.ErrNoRows
	}
	b.Inventory++
	return nil
}

func (f *fakeStore) Insert(ctx context.Context, b *model.Borrowing) error {
	f.nextBID++
	b.ID = f.nextBID
	cp := *b
	f.borrowings[b.ID] = &cp
	return nil
}

func (f *fakeStore) GetForUpdate(ctx context.Context, id int64) (*borrowingrepo.LoanRow, error) {
	b, ok := f.borrowings[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	book := f.books[b.BookID]
	return &borrowingrepo.LoanRow{
		Borrowing: *b,
		BookTitle: book.Title,
		DailyFee:  book.DailyFee,
		UserEmail: "reader@example.com",
	}, nil
}

func (f *fakeStore) MarkReturned(ctx context.Context, id int64, on time.Time) (bool, error) {
	b, ok := f.borrowings[id]
	if !ok || b.ActualReturnDate != nil {
		return false, nil
	}
	cp := on
	b.ActualReturnDate = &cp
	b.IsActive = false
	return true, nil
}

func (f *fakeStore) List(ctx context.Context, flt model.BorrowingFilter) ([]model.Borrowing, error) {
	var out []model.Borrowing
	for _, b := range f.borrowings {
		if flt.UserID > 0 && b.UserID != flt.UserID {
			continue
		}
		if flt.IsActive != nil && b.IsActive != *flt.IsActive {
			continue
		}
		out = append(out, *b)
	}
	return out, nil
}

func (f *fakeStore) Detail(ctx context.Context, id int64) (*model.Borrowing, error) {
	b, ok := f.borrowings[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *b
	return &cp, nil
}

func (f *fakeStore) ListOverdueOpen(ctx context.Context, asOf time.Time) ([]borrowingrepo.LoanRow, error) {
	var out []borrowingrepo.LoanRow
	for _, b := range f.borrowings {
		if b.ActualReturnDate != nil || b.ExpectedReturnDate.After(asOf) {
			continue
		}
		book := f.books[b.BookID]
		out = append(out, borrowingrepo.LoanRow{Borrowing: *b, BookTitle: book.Title, DailyFee: book.DailyFee, UserEmail: "reader@example.com"})
	}
	return out, nil
}

// paymentrepo.Repo

func (f *fakeStore) Upsert(ctx context.Context, p *model.Payment) error {
	for _, ex := range f.payments {
		if ex.BorrowingID == p.BorrowingID && ex.Type == p.Type {
			ex.Status = p.Status
			ex.SessionID = p.SessionID
			ex.SessionURL = p.SessionURL
			ex.MoneyToPay = p.MoneyToPay
			p.ID = ex.ID
			return nil
		}
	}
	f.nextPID++
	p.ID = f.nextPID
	cp := *p
	f.payments[p.ID] = &cp
	return nil
}

func (f *fakeStore) BySessionID(ctx context.Context, sessionID string) (*paymentrepo.SessionRow, error) {
	for _, p := range f.payments {
		if p.SessionID == sessionID {
			return &paymentrepo.SessionRow{Payment: *p, BookTitle: "", UserEmail: "reader@example.com"}, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeStore) PaymentDetail(ctx context.Context, id int64) (*model.Payment, error) {
	p, ok := f.payments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *p
	return &cp, nil
}

func (f *fakeStore) ListPayments(ctx context.Context, userID int64, all bool) ([]model.Payment, error) {
	var out []model.Payment
	for _, p := range f.payments {
		if !all && p.UserID != userID {
			continue
		}
		out = append(out, *p)
	}
	return out, nil
}

func (f *fakeStore) ListByStatus(ctx context.Context, status model.PaymentStatus) ([]model.Payment, error) {
	var out []model.Payment
	for _, p := range f.payments {
		if p.Status == status {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeStore) HasUnsettled(ctx context.Context, userID int64) (bool, error) {
	for _, p := range f.payments {
		if p.UserID == userID && (p.Status == model.PaymentPending || p.Status == model.PaymentExpired) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) OldestExpiredByUser(ctx context.Context, userID int64) (*model.Payment, error) {
	var best *model.Payment
	for _, p := range f.payments {
		if p.UserID != userID || p.Status != model.PaymentExpired {
			continue
		}
		if best == nil || p.ID < best.ID {
			best = p
		}
	}
	if best == nil {
		return nil, nil
	}
	cp := *best
	return &cp, nil
}

func (f *fakeStore) UpdateStatusIfPending(ctx context.Context, id int64, status model.PaymentStatus) (bool, error) {
	p, ok := f.payments[id]
	if !ok || p.Status != model.PaymentPending {
		return false, nil
	}
	p.Status = status
	return true, nil
}

func (f *fakeStore) RenewSession(ctx context.Context, id int64, sessionID, sessionURL string) (bool, error) {
	p, ok := f.payments[id]
	if !ok || p.Status != model.PaymentExpired {
		return false, nil
	}
	p.Status = model.PaymentPending
	p.SessionID = sessionID
	p.SessionURL = sessionURL
	return true, nil
}

func (f *fakeStore) settleAll() {
	for _, p := range f.payments {
		p.Status = model.PaymentPaid
	}
}

// fakeStore's method set intersects both interfaces; rename clashes are
// bridged here so a single store backs the whole service under test.
type paymentRepoAdapter struct{ *fakeStore }

func (a paymentRepoAdapter) Detail(ctx context.Context, id int64) (*model.Payment, error) {
	return a.PaymentDetail(ctx, id)
}

func (a paymentRepoAdapter) List(ctx context.Context, userID int64, all bool) ([]model.Payment, error) {
	return a.ListPayments(ctx, userID, all)
}

var _ borrowingrepo.Repo = (*fakeStore)(nil)
var _ paymentrepo.Repo = paymentRepoAdapter{}

// ----- gateway mock -----

type gatewayMock struct {
	createFn func(req striperepo.CreateSessionReq) (*striperepo.CreateSessionResp, error)
	statusFn func(sessionID string) (striperepo.SessionStatus, error)
	created  []striperepo.CreateSessionReq
}

func (g *gatewayMock) CreateSession(ctx context.Context, req striperepo.CreateSessionReq) (*striperepo.CreateSessionResp, error) {
	if g.createFn != nil {
		resp, err := g.createFn(req)
		if err != nil {
			return nil, err
		}
		g.created = append(g.created, req)
		return resp, nil
	}
	g.created = append(g.created, req)
	return &striperepo.CreateSessionResp{
		SessionID:  "sess_" + req.Reference,
		SessionURL: "https://checkout.example/" + req.Reference,
	}, nil
}

func (g *gatewayMock) GetSessionStatus(ctx context.Context, sessionID string) (striperepo.SessionStatus, error) {
	if g.statusFn != nil {
		return g.statusFn(sessionID)
	}
	return striperepo.StatusOpen, nil
}

func newService(store *fakeStore, gw *gatewayMock, at time.Time) bs.Service {
	return bs.New(store, paymentRepoAdapter{store}, gw, clock.NewFixed(at), bs.Config{FineMultiplier: 2})
}

// ----- tests -----

func TestCreate_InvalidReturnDate(t *testing.T) {
	store := newFakeStore()
	store.addBook(1, "Dune", 3, "1.00")
	gw := &gatewayMock{}
	svc := newService(store, gw, day(0))

	for _, due := range []time.Time{day(0), day(-1)} {
		if _, err := svc.Create(context.Background(), 7, 1, due); bs.Code(err) != bs.ErrInvalidReturnDate {
			t.Fatalf("due %v: got %v, want INVALID_RETURN_DATE", due, err)
		}
	}
	if len(gw.created) != 0 {
		t.Fatal("no session should be opened for rejected requests")
	}
}

func TestCreate_UnsettledPaymentBlocks(t *testing.T) {
	store := newFakeStore()
	store.addBook(1, "Dune", 3, "1.00")
	store.payments[99] = &model.Payment{ID: 99, BorrowingID: 55, UserID: 7, Status: model.PaymentExpired, Type: model.TypePayment}
	svc := newService(store, &gatewayMock{}, day(0))

	_, err := svc.Create(context.Background(), 7, 1, day(7))
	if bs.Code(err) != bs.ErrUnsettledPayment {
		t.Fatalf("got %v, want EXISTING_UNSETTLED_PAYMENT", err)
	}
	if store.books[1].Inventory != 3 {
		t.Fatalf("inventory changed: %d", store.books[1].Inventory)
	}
}

func TestCreate_InventoryExhausted(t *testing.T) {
	store := newFakeStore()
	store.addBook(1, "Dune", 0, "1.00")
	gw := &gatewayMock{}
	svc := newService(store, gw, day(0))

	_, err := svc.Create(context.Background(), 7, 1, day(7))
	if bs.Code(err) != bs.ErrNoInventory {
		t.Fatalf("got %v, want INVENTORY_EXHAUSTED", err)
	}
	if store.books[1].Inventory != 0 {
		t.Fatalf("inventory must stay 0, got %d", store.books[1].Inventory)
	}
	if len(store.borrowings) != 0 || len(gw.created) != 0 {
		t.Fatal("nothing should be created")
	}
}

func TestCreate_BookNotFound(t *testing.T) {
	store := newFakeStore()
	svc := newService(store, &gatewayMock{}, day(0))

	if _, err := svc.Create(context.Background(), 7, 42, day(7)); bs.Code(err) != bs.ErrBookNotFound {
		t.Fatalf("got %v, want BOOK_NOT_FOUND", err)
	}
}

func TestCreate_GatewayDownLeavesNothingBehind(t *testing.T) {
	store := newFakeStore()
	store.addBook(1, "Dune", 3, "1.00")
	gw := &gatewayMock{
		createFn: func(striperepo.CreateSessionReq) (*striperepo.CreateSessionResp, error) {
			return nil, errors.New("connection refused")
		},
	}
	svc := newService(store, gw, day(0))

	_, err := svc.Create(context.Background(), 7, 1, day(7))
	if bs.Code(err) != bs.ErrGateway {
		t.Fatalf("got %v, want GATEWAY_UNAVAILABLE", err)
	}
	if store.books[1].Inventory != 3 {
		t.Fatalf("inventory must be untouched, got %d", store.books[1].Inventory)
	}
	if len(store.borrowings) != 0 || len(store.payments) != 0 {
		t.Fatal("no borrowing or payment may exist without a session")
	}
}

func TestCreate_Success(t *testing.T) {
	store := newFakeStore()
	store.addBook(1, "Dune", 3, "1.00")
	gw := &gatewayMock{}
	svc := newService(store, gw, day(0))

	out, err := svc.Create(context.Background(), 7, 1, day(7))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if want := decimal.RequireFromString("7.00"); !out.MoneyToPay.Equal(want) {
		t.Fatalf("money_to_pay %s, want %s", out.MoneyToPay, want)
	}
	if store.books[1].Inventory != 2 {
		t.Fatalf("inventory %d, want 2", store.books[1].Inventory)
	}

	b := store.borrowings[out.BorrowingID]
	if b == nil || !b.IsActive || b.ActualReturnDate != nil {
		t.Fatalf("borrowing not OPEN: %+v", b)
	}
	if !b.BorrowDate.Equal(day(0)) || !b.ExpectedReturnDate.Equal(day(7)) {
		t.Fatalf("bad dates: %+v", b)
	}

	if len(store.payments) != 1 {
		t.Fatalf("want exactly one payment, got %d", len(store.payments))
	}
	for _, p := range store.payments {
		if p.Status != model.PaymentPending || p.Type != model.TypePayment {
			t.Fatalf("payment %+v, want PENDING PAYMENT", p)
		}
		if !p.MoneyToPay.Equal(decimal.RequireFromString("7.00")) {
			t.Fatalf("payment amount %s, want 7.00", p.MoneyToPay)
		}
		if p.SessionID == "" || p.SessionURL == "" {
			t.Fatalf("session identifiers missing: %+v", p)
		}
	}
}

func TestReturn_LateChargesFine(t *testing.T) {
	store := newFakeStore()
	store.addBook(1, "Dune", 3, "1.00")
	gw := &gatewayMock{}

	out, err := newService(store, gw, day(0)).Create(context.Background(), 7, 1, day(7))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Ten days later.
	ret, err := newService(store, gw, day(10)).Return(context.Background(), 7, out.BorrowingID)
	if err != nil {
		t.Fatalf("return: %v", err)
	}
	if want := decimal.RequireFromString("6.00"); !ret.Fine.Equal(want) {
		t.Fatalf("fine %s, want %s (3 days x 1.00 x 2)", ret.Fine, want)
	}
	if ret.FineSessionURL == "" {
		t.Fatal("fine session url missing")
	}
	if store.books[1].Inventory != 3 {
		t.Fatalf("inventory %d, want 3 after return", store.books[1].Inventory)
	}

	b := store.borrowings[out.BorrowingID]
	if b.IsActive || b.ActualReturnDate == nil || !b.ActualReturnDate.Equal(day(10)) {
		t.Fatalf("borrowing not RETURNED on day 10: %+v", b)
	}

	var kinds []model.PaymentType
	for _, p := range store.payments {
		kinds = append(kinds, p.Type)
		if p.Status != model.PaymentPending {
			t.Fatalf("payment %d should be PENDING, got %s", p.ID, p.Status)
		}
	}
	if len(kinds) != 2 {
		t.Fatalf("want PAYMENT and FINE records, got %v", kinds)
	}
}

func TestReturn_OnTimeNoFine(t *testing.T) {
	store := newFakeStore()
	store.addBook(1, "Dune", 3, "1.00")
	gw := &gatewayMock{}

	out, err := newService(store, gw, day(0)).Create(context.Background(), 7, 1, day(7))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	sessionsAfterCreate := len(gw.created)

	ret, err := newService(store, gw, day(7)).Return(context.Background(), 7, out.BorrowingID)
	if err != nil {
		t.Fatalf("return: %v", err)
	}
	if !ret.Fine.IsZero() {
		t.Fatalf("fine %s, want 0 for on-time return", ret.Fine)
	}
	if len(gw.created) != sessionsAfterCreate {
		t.Fatal("no fine session should be opened for on-time return")
	}
	if len(store.payments) != 1 {
		t.Fatalf("want only the PAYMENT record, got %d", len(store.payments))
	}
}

func TestReturn_Twice(t *testing.T) {
	store := newFakeStore()
	store.addBook(1, "Dune", 3, "1.00")
	gw := &gatewayMock{}

	out, err := newService(store, gw, day(0)).Create(context.Background(), 7, 1, day(7))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	svc := newService(store, gw, day(7))
	if _, err := svc.Return(context.Background(), 7, out.BorrowingID); err != nil {
		t.Fatalf("first return: %v", err)
	}

	_, err = svc.Return(context.Background(), 7, out.BorrowingID)
	if bs.Code(err) != bs.ErrAlreadyReturned {
		t.Fatalf("got %v, want ALREADY_RETURNED", err)
	}
	if store.books[1].Inventory != 3 {
		t.Fatalf("double return must not restock twice, inventory %d", store.books[1].Inventory)
	}
	if !store.borrowings[out.BorrowingID].ActualReturnDate.Equal(day(7)) {
		t.Fatal("actual_return_date must be immutable")
	}
}

func TestReturn_NotOwner(t *testing.T) {
	store := newFakeStore()
	store.addBook(1, "Dune", 3, "1.00")
	gw := &gatewayMock{}

	out, err := newService(store, gw, day(0)).Create(context.Background(), 7, 1, day(7))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := newService(store, gw, day(7)).Return(context.Background(), 8, out.BorrowingID); bs.Code(err) != bs.ErrNotOwner {
		t.Fatalf("got %v, want NOT_OWNER", err)
	}
}

func TestReturn_GatewayDownRollsBack(t *testing.T) {
	store := newFakeStore()
	store.addBook(1, "Dune", 3, "1.00")
	gw := &gatewayMock{}

	out, err := newService(store, gw, day(0)).Create(context.Background(), 7, 1, day(7))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	gw.createFn = func(striperepo.CreateSessionReq) (*striperepo.CreateSessionResp, error) {
		return nil, errors.New("timeout")
	}
	_, err = newService(store, gw, day(10)).Return(context.Background(), 7, out.BorrowingID)
	if bs.Code(err) != bs.ErrGateway {
		t.Fatalf("got %v, want GATEWAY_UNAVAILABLE", err)
	}

	b := store.borrowings[out.BorrowingID]
	if !b.IsActive || b.ActualReturnDate != nil {
		t.Fatalf("return must not be recorded when the fine session fails: %+v", b)
	}
	if store.books[1].Inventory != 2 {
		t.Fatalf("inventory must stay decremented, got %d", store.books[1].Inventory)
	}
}

func TestConservation(t *testing.T) {
	store := newFakeStore()
	store.addBook(1, "Dune", 2, "1.00")
	gw := &gatewayMock{}

	for i := 0; i < 5; i++ {
		start := day(i * 20)
		out, err := newService(store, gw, start).Create(context.Background(), 7, 1, start.AddDate(0, 0, 7))
		if err != nil {
			t.Fatalf("cycle %d create: %v", i, err)
		}
		if _, err := newService(store, gw, start.AddDate(0, 0, 7)).Return(context.Background(), 7, out.BorrowingID); err != nil {
			t.Fatalf("cycle %d return: %v", i, err)
		}
		// Settle dues so the next cycle is allowed to borrow.
		store.settleAll()
	}

	if store.books[1].Inventory != 2 {
		t.Fatalf("inventory %d after 5 cycles, want 2", store.books[1].Inventory)
	}
}

func TestDetail_OwnerScoping(t *testing.T) {
	store := newFakeStore()
	store.addBook(1, "Dune", 3, "1.00")
	gw := &gatewayMock{}
	svc := newService(store, gw, day(0))

	out, err := svc.Create(context.Background(), 7, 1, day(7))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.Detail(context.Background(), 8, false, out.BorrowingID); bs.Code(err) != bs.ErrNotOwner {
		t.Fatalf("stranger: got %v, want NOT_OWNER", err)
	}
	if _, err := svc.Detail(context.Background(), 8, true, out.BorrowingID); err != nil {
		t.Fatalf("staff should see any borrowing: %v", err)
	}
	if _, err := svc.Detail(context.Background(), 7, false, out.BorrowingID); err != nil {
		t.Fatalf("owner: %v", err)
	}
}
